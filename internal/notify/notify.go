// Package notify delivers the short user-facing messages raised by the
// reminder store: websocket toasts for open dashboards and log lines for
// the operator.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/websocket"
)

// DefaultToastDuration is how long a dashboard shows a toast.
const DefaultToastDuration = 3 * time.Second

// Broadcaster sends a message to every connected client.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Hub turns notifications into websocket toast messages.
type Hub struct {
	hub      Broadcaster
	duration time.Duration
}

func NewHub(hub Broadcaster, duration time.Duration) *Hub {
	if duration <= 0 {
		duration = DefaultToastDuration
	}
	return &Hub{hub: hub, duration: duration}
}

func (h *Hub) Notify(message string, severity model.Severity) {
	h.hub.Broadcast(Toast(message, severity, h.duration))
}

// Toast builds the {"type":"toast"} message dashboards display.
func Toast(message string, severity model.Severity, duration time.Duration) websocket.Message {
	return websocket.Message{
		Type:   "toast",
		Entity: "toast",
		Action: string(severity),
		Extra: map[string]any{
			"message":     message,
			"severity":    string(severity),
			"duration_ms": duration.Milliseconds(),
		},
	}
}

// Log writes notifications to a logger. Errors are logged at WARN since
// they are user mistakes or already-logged failures.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(message string, severity model.Severity) {
	level := slog.LevelInfo
	if severity == model.SeverityError {
		level = slog.LevelWarn
	}
	l.logger.Log(context.Background(), level, "notification", "message", message, "severity", severity)
}

// Notifier is anything that can show a message to the user.
type Notifier interface {
	Notify(message string, severity model.Severity)
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(message string, severity model.Severity) {
	for _, n := range m {
		n.Notify(message, severity)
	}
}
