package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a single room sensor measurement to InfluxDB.
//
// This is the primary method for recording environmental telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - location: Room slug the reading came from (e.g., "kitchen")
//   - metric: The reading name (e.g., "temperature", "humidity", "gas")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorReading("kitchen", "temperature", 21.5)
//	client.WriteSensorReading("bedroom", "humidity", 48.0)
func (c *Client) WriteSensorReading(location string, metric string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"location": location,
			"metric":   metric,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceEvent records a device state transition (on/off, open/closed,
// online/offline). State is stored as a field so the series cardinality
// stays bounded by device count.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "dev-a1b2c3d4")
//   - location: Room slug the device belongs to
//   - kind: Device type (light, door, window, ...)
//   - state: The new state string
func (c *Client) WriteDeviceEvent(deviceID, location, kind, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_events",
		map[string]string{
			"device_id": deviceID,
			"location":  location,
			"type":      kind,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
