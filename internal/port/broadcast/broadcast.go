// Package broadcast defines the port for pushing assessment events to
// connected dashboard clients.
package broadcast

import "context"

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// EventAssessmentCompleted is emitted after every coordination.
const EventAssessmentCompleted = "assessment.completed"
