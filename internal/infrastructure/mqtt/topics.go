package mqtt

import "fmt"

// Topic prefixes for reeflink's own MQTT traffic.
//
// Controller push updates arrive on the reef-pi topic prefix, which is
// configurable (mqtt.topic_prefix) and owned by the controller, not by us.
// Everything reeflink itself publishes lives under the reeflink/ prefix.
const (
	// TopicPrefixService is the base for all reeflink-published topics.
	TopicPrefixService = "reeflink"
)

// Topics provides builders for reeflink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.ServiceStatus()
//	// Returns: "reeflink/status"
type Topics struct{}

// ServiceStatus returns the service status topic, used for the online/offline
// lifecycle messages including the Last Will and Testament.
//
// Example: reeflink/status
func (Topics) ServiceStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixService)
}

// ServiceEvent returns the topic for bridge events (snapshot refreshed,
// collision detected, calibration progress).
//
// Example: reeflink/event/collision_detected
func (Topics) ServiceEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixService, eventType)
}

// ControllerUpdates returns a pattern matching all push updates published
// by the controller under the configured prefix.
//
// Pattern: reef-pi/#
func (Topics) ControllerUpdates(prefix string) string {
	return fmt.Sprintf("%s/#", prefix)
}

// ControllerSensor returns the exact topic for a single derived sensor
// under the configured prefix.
//
// Example: reef-pi/display_tank_reading
func (Topics) ControllerSensor(prefix, suffix string) string {
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
