// Package mqtt provides the MQTT transport for reeflink.
//
// It wraps eclipse/paho.mqtt.golang with connection lifecycle management:
// automatic reconnection with exponential backoff, subscription restoration
// after reconnect, Last Will and Testament for offline detection, and panic
// recovery around message handlers.
//
// Two topic namespaces are involved:
//
//   - The controller's push updates arrive under the configurable reef-pi
//     prefix (mqtt.topic_prefix). reeflink subscribes with a multi-level
//     wildcard and routes payloads to the push mapper.
//   - reeflink's own lifecycle and event messages are published under the
//     reeflink/ prefix (see topics.go).
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return fmt.Errorf("mqtt connect: %w", err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.ControllerUpdates(cfg.MQTT.TopicPrefix), 1, handler)
package mqtt
