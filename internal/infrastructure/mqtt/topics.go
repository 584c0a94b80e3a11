package mqtt

import "fmt"

// Topic prefixes for the SmartNest MQTT hierarchy.
//
// All device topics use the flat scheme: smartnest/{category}/{location}/...
// Locations are room slugs (living-room, bedroom, kitchen); device IDs are
// the dev- prefixed IDs from the device registry.
const (
	// TopicPrefix is the base for all SmartNest topics.
	TopicPrefix = "smartnest"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "smartnest/system"
)

// Topics provides builders for SmartNest MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("kitchen", "dev-a1b2c3d4")
//	// Returns: "smartnest/state/kitchen/dev-a1b2c3d4"
type Topics struct{}

// SensorReadings returns the topic a room's sensors report on.
// Payloads are shallow JSON objects (temperature, humidity, gas, lightLevel)
// carrying only the fields that changed.
//
// Example: smartnest/sensor/kitchen
func (Topics) SensorReadings(location string) string {
	return fmt.Sprintf("%s/sensor/%s", TopicPrefix, location)
}

// DeviceState returns the topic a device reports its state on.
//
// Example: smartnest/state/kitchen/dev-a1b2c3d4
func (Topics) DeviceState(location, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, location, deviceID)
}

// DeviceStatus returns the topic for device online/offline transitions.
//
// Example: smartnest/status/kitchen/dev-a1b2c3d4
func (Topics) DeviceStatus(location, deviceID string) string {
	return fmt.Sprintf("%s/status/%s/%s", TopicPrefix, location, deviceID)
}

// DeviceCommand returns the topic commands to a device are published on.
//
// Example: smartnest/command/kitchen/dev-a1b2c3d4
func (Topics) DeviceCommand(location, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, location, deviceID)
}

// SystemStatus returns the core status topic (online/offline, LWT).
//
// Example: smartnest/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllSensorReadings returns a pattern matching sensor reports from every room.
//
// Pattern: smartnest/sensor/+
func (Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/sensor/+", TopicPrefix)
}

// AllDeviceStates returns a pattern matching all device state reports.
//
// Pattern: smartnest/state/+/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefix)
}

// AllDeviceStatus returns a pattern matching all device status transitions.
//
// Pattern: smartnest/status/+/+
func (Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/status/+/+", TopicPrefix)
}

// AllTopics returns a pattern matching all SmartNest topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: smartnest/#
func (Topics) AllTopics() string {
	return "smartnest/#"
}
