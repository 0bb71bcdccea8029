package server

import (
	"context"
	"net/http"
	"time"

	"github.com/alwitt/catalog/editor"
	"github.com/apex/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// eventBufferSize session events held for a slow websocket client
	eventBufferSize = 64
	// eventWriteTimeout upper bound on sending one event
	eventWriteTimeout = 5 * time.Second
)

// Session event types
const (
	eventNotification = "notification"
	eventNavigation   = "navigation"
)

// sessionEvent one websocket message
type sessionEvent struct {
	// Type event type
	Type string `json:"type"`
	// Kind the entity kind
	Kind string `json:"kind"`
	// Notification the raised notification
	Notification *editor.Notification `json:"notification,omitempty"`
	// Location the new session location
	Location string `json:"location,omitempty"`
}

// Events GET /{kind}/events
func (h *entityHandler) Events(w http.ResponseWriter, r *http.Request) {
	logTags := h.GetLogTagsForContext(r.Context())

	session, engine, ok := h.loadEngine(w, r)
	if !ok {
		return
	}

	// Events are dropped rather than blocking the engine when the client falls behind
	queue := make(chan sessionEvent, eventBufferSize)
	push := func(event sessionEvent) {
		select {
		case queue <- event:
		default:
			log.WithFields(logTags).WithField("type", event.Type).Warn("Dropping session event")
		}
	}

	stopNotifications := engine.Notifications().Subscribe(func(notification editor.Notification) {
		push(sessionEvent{Type: eventNotification, Kind: h.kind, Notification: &notification})
	})
	defer stopNotifications()
	stopNavigation := engine.Location().Subscribe(func(location string) {
		push(sessionEvent{Type: eventNavigation, Kind: h.kind, Location: location})
	})
	defer stopNavigation()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Websocket accept failed")
		return
	}
	defer conn.CloseNow()

	// Inbound messages are not expected; reading only tracks the peer closing
	ctx := conn.CloseRead(r.Context())

	log.WithFields(logTags).WithField("session", session.ID).Debug("Event stream opened")
	for {
		select {
		case <-ctx.Done():
			log.WithFields(logTags).WithField("session", session.ID).Debug("Event stream closed")
			return
		case event := <-queue:
			if err := h.sendEvent(ctx, conn, event); err != nil {
				log.WithError(err).WithFields(logTags).Debug("Event send failed")
				return
			}
		}
	}
}

// sendEvent write one event with a bounded wait
func (h *entityHandler) sendEvent(ctx context.Context, conn *websocket.Conn, event sessionEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}
