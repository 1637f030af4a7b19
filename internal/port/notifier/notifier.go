// Package notifier defines the alert delivery port and the registry of
// channel adapters (slack, email, discord).
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Alert levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`  // "info", "warning", "error"
	Source  string `json:"source"` // e.g. "assessment.completed"
	// Recipients overrides the channel's configured recipients where the
	// channel addresses people (email). Webhook channels ignore it.
	Recipients []string `json:"recipients,omitempty"`
}

// Capabilities declares which features a notifier supports.
type Capabilities struct {
	// RichFormatting channels render Markdown in the message body.
	RichFormatting bool `json:"rich_formatting"`
}

// Notifier is the port interface for delivering alerts to one channel.
type Notifier interface {
	// Name returns the channel name used in ALERT action parameters
	// (e.g. "slack", "email").
	Name() string

	// Capabilities returns what this notifier supports.
	Capabilities() Capabilities

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
