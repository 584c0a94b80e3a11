// Package mqtt provides MQTT client connectivity for SmartNest Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// SmartNest uses MQTT as the message bus connecting the Core to the
// room microcontrollers (sensor boards, light/door/window actuators).
// The broker (Mosquitto) decouples Core from the firmware.
//
//	SmartNest Core ↔ MQTT Broker ↔ Room Controllers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all sensor reports
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish command
//	topic := mqtt.Topics{}.DeviceCommand("kitchen", "dev-a1b2c3d4")
//	client.Publish(topic, []byte(`{"state":"on"}`), 1, false)
package mqtt
