package main

import (
	"encoding/json"

	"github.com/reeflink/reeflink/internal/coordinator"
	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/infrastructure/mqtt"
)

// eventFanout delivers coordinator events to multiple sinks.
type eventFanout []coordinator.EventSink

func (f eventFanout) Send(event coordinator.Event) {
	for _, sink := range f {
		sink.Send(event)
	}
}

// mqttEventSink republishes coordinator events (snapshot refreshes,
// device changes, collision quarantines) on the service event topics so
// other MQTT consumers can react without polling the API.
type mqttEventSink struct {
	client *mqtt.Client
	logger *logging.Logger
	topics mqtt.Topics
}

func newMQTTEventSink(client *mqtt.Client, logger *logging.Logger) *mqttEventSink {
	return &mqttEventSink{client: client, logger: logger}
}

// Send publishes the event asynchronously. The coordinator calls Send
// while holding its cycle lock and Publish waits on broker confirmation,
// so the publish must not happen inline.
func (s *mqttEventSink) Send(event coordinator.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal event for MQTT", "type", event.Type, "error", err)
		return
	}
	topic := s.topics.ServiceEvent(event.Type)
	go func() {
		if pubErr := s.client.Publish(topic, payload, 0, false); pubErr != nil {
			s.logger.Debug("failed to publish event", "topic", topic, "error", pubErr)
		}
	}()
}
