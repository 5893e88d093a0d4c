package api

import (
	"encoding/json"

	"github.com/reeflink/reeflink/internal/infrastructure/logging"
	"github.com/reeflink/reeflink/internal/infrastructure/mqtt"
)

// Notifier delivers calibration notifications to user interfaces.
//
// Notifications go out on two paths: the WebSocket hub (channel
// "notification") for connected UIs, and the reeflink/event/notification
// MQTT topic for external consumers. Both paths are best-effort; a
// notification is progress reporting, never state.
type Notifier struct {
	hub    *Hub
	mqtt   *mqtt.Client
	logger *logging.Logger
}

// NewNotifier builds a notifier. The MQTT client may be nil.
func NewNotifier(hub *Hub, client *mqtt.Client, logger *logging.Logger) *Notifier {
	return &Notifier{hub: hub, mqtt: client, logger: logger}
}

// notificationPayload is the wire shape shared by both delivery paths.
type notificationPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	Dismissed bool   `json:"dismissed,omitempty"`
}

// Notify creates or replaces the notification with the given id.
func (n *Notifier) Notify(id, title, body string) {
	n.publish(notificationPayload{ID: id, Title: title, Body: body})
}

// Dismiss removes the notification with the given id.
func (n *Notifier) Dismiss(id string) {
	n.publish(notificationPayload{ID: id, Dismissed: true})
}

func (n *Notifier) publish(payload notificationPayload) {
	if n.hub != nil {
		n.hub.Broadcast(WSChannelNotification, payload)
	}
	if n.mqtt == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	topics := mqtt.Topics{}
	if err := n.mqtt.Publish(topics.ServiceEvent(WSChannelNotification), data, 1, false); err != nil {
		n.logger.Debug("notification publish failed", "id", payload.ID, "error", err)
	}
}
