// Package influxdb provides the optional telemetry sink for reeflink.
//
// It wraps influxdata/influxdb-client-go/v2 with non-blocking batched
// writes. Sensor readings, equipment state transitions, and refresh-cycle
// statistics are written as they are observed; write failures surface
// through an asynchronous error callback rather than blocking the
// refresh path.
//
// The sink is disabled by default. When influxdb.enabled is false,
// Connect returns ErrDisabled and callers run without telemetry.
//
// Usage:
//
//	sink, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    sink = nil // telemetry off
//	} else if err != nil {
//	    return fmt.Errorf("influxdb connect: %w", err)
//	}
package influxdb
