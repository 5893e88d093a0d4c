// Package push maps reef-pi's MQTT telemetry topics onto devices and
// folds incoming values into the snapshot between polling cycles.
//
// reef-pi derives each device's topic from its display name, so the
// mapping is rebuilt from the device catalog rather than configured.
// The derivation is lossy: "Heater 1" and "heater-1" both become
// heater_1, and when two devices land on the same topic neither can be
// trusted. Collided topics are quarantined and stay that way until an
// operator resets the mapper.
package push
