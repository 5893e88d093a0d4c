package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes a single sensor reading to InfluxDB.
//
// This is the primary method for recording telemetry from refresh cycles
// and push updates. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - kind: The subsystem the reading belongs to (e.g., "temperature", "ph")
//   - deviceID: Controller-assigned device identifier
//   - deviceName: Human-readable device name
//   - value: The reading value
//
// Example:
//
//	client.WriteReading("temperature", "1", "Display Tank", 25.4)
//	client.WriteReading("ph", "2", "Sump Probe", 8.1234)
func (c *Client) WriteReading(kind, deviceID, deviceName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"readings",
		map[string]string{
			"kind":        kind,
			"device_id":   deviceID,
			"device_name": deviceName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteEquipmentState writes an equipment on/off observation.
//
// State is recorded as 1.0 (on) or 0.0 (off) so dashboards can graph
// duty cycles alongside sensor readings.
func (c *Client) WriteEquipmentState(deviceID, deviceName string, on bool) {
	if !c.IsConnected() {
		return
	}

	state := 0.0
	if on {
		state = 1.0
	}

	point := write.NewPoint(
		"equipment_state",
		map[string]string{
			"device_id":   deviceID,
			"device_name": deviceName,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCycleStats writes refresh-cycle statistics.
//
// Used for monitoring the bridge itself: cycle duration and how many
// devices each cycle observed.
//
// Parameters:
//   - duration: Wall-clock time of the completed cycle
//   - deviceCount: Total devices captured in the snapshot
//   - skipped: Devices skipped because a fresh push update existed
func (c *Client) WriteCycleStats(duration time.Duration, deviceCount, skipped int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"refresh_cycles",
		nil,
		map[string]interface{}{
			"duration_ms":  float64(duration.Milliseconds()),
			"device_count": deviceCount,
			"skipped":      skipped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now", such as historical usage
// records parsed from the controller.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
