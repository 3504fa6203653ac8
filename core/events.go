package core

import (
	"context"
	"time"
)

// Event names
const (
	EventEnrollmentCreated   = "enrollment.created"
	EventEnrollmentCompleted = "enrollment.completed"
	EventPaymentConfirmed    = "enrollment.payment_confirmed"
	EventQuizGraded          = "quiz.graded"
	EventAssignmentSubmitted = "assignment.submitted"
	EventAssignmentGraded    = "assignment.graded"
	EventReviewModerated     = "review.moderated"
	EventRegistrationCreated = "event.registration_created"
)

type Event struct {
	Name       string      `json:"name"`
	Key        string      `json:"key"` // partitioning key, usually the aggregate ID
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func NewEvent(name, key string, payload interface{}) Event {
	return Event{Name: name, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

// EventPublisher publishes domain events. Publication is best effort: callers log failures and move on.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// PublishQuietly publishes events and logs (without returning) any failure.
func PublishQuietly(ctx context.Context, pub EventPublisher, logger Logger, events ...Event) {
	if pub == nil || len(events) == 0 {
		return
	}
	if err := pub.Publish(ctx, events...); err != nil && logger != nil {
		logger.Warn("publishing events", err, map[string]interface{}{"event": events[0].Name, "count": len(events)})
	}
}
