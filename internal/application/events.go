package application

import (
	"context"
	"time"
)

const (
	EventEnrollmentCreated = "enrollment.created"
	EventEnrollmentRemoved = "enrollment.removed"
)

// EventPublisher is satisfied by helpers.RabbitPublisher.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EnrollmentEvent is published after an enrollment state transition settles.
type EnrollmentEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	CourseID    string    `json:"course_id"`
	CourseTitle string    `json:"course_title,omitempty"`
	StudentID   string    `json:"student_id"`
}
