package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
	mailtpl "github.com/oksasatya/course-enrollment/pkg/mailer/templates"
)

// ErrDropEvent marks an event that can never be delivered. The worker acks
// it away instead of requeueing.
var ErrDropEvent = errors.New("event dropped")

// MailSender is satisfied by mailer.Mailgun.
type MailSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// NotificationService mails students when their enrollment changes.
type NotificationService struct {
	Users   repo.UserRepository
	Courses repo.CourseRepository
	Mail    MailSender
	AppName string
	Logger  *logrus.Logger
}

func NewNotificationService(users repo.UserRepository, courses repo.CourseRepository, mail MailSender, appName string, logger *logrus.Logger) *NotificationService {
	return &NotificationService{Users: users, Courses: courses, Mail: mail, AppName: appName, Logger: resolveLogger(logger)}
}

// HandleMessage decodes one queue message and sends the matching notice.
// Errors wrapping ErrDropEvent are permanent; anything else may succeed on retry.
func (s *NotificationService) HandleMessage(ctx context.Context, body []byte) error {
	var ev EnrollmentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrDropEvent, err)
	}
	return s.HandleEvent(ctx, ev)
}

func (s *NotificationService) HandleEvent(ctx context.Context, ev EnrollmentEvent) error {
	var tpl string
	switch ev.EventType {
	case EventEnrollmentCreated:
		tpl = mailtpl.EnrollmentCreated
	case EventEnrollmentRemoved:
		tpl = mailtpl.EnrollmentRemoved
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrDropEvent, ev.EventType)
	}
	if ev.StudentID == "" || ev.CourseID == "" {
		return fmt.Errorf("%w: event %s missing ids", ErrDropEvent, ev.EventID)
	}

	fields := logrus.Fields{"event_id": ev.EventID, "event_type": ev.EventType, "course_id": ev.CourseID, "student_id": ev.StudentID}

	u, err := s.Users.GetByID(ctx, ev.StudentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: student %s not found", ErrDropEvent, ev.StudentID)
		}
		return &StorageError{Op: "get user", Err: err}
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: student %s has no email", ErrDropEvent, ev.StudentID)
	}

	title := ev.CourseTitle
	if title == "" {
		// removed events carry no title and the course may be gone already
		if c, err := s.Courses.GetByID(ctx, ev.CourseID); err == nil {
			title = c.Title
		} else if !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).WithFields(fields).Warn("course lookup for notice failed")
		}
	}

	subject, text, html, err := mailtpl.Render(tpl, mailtpl.EnrollmentData{
		AppName:     s.AppName,
		StudentName: u.Name,
		Email:       u.Email,
		CourseID:    ev.CourseID,
		CourseTitle: title,
		OccurredAt:  ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("%w: render %s: %v", ErrDropEvent, tpl, err)
	}

	if err := s.Mail.Send(ctx, u.Email, subject, text, html); err != nil {
		s.Logger.WithError(err).WithFields(fields).Warn("send enrollment notice failed")
		return fmt.Errorf("send notice: %w", err)
	}
	s.Logger.WithFields(fields).Info("enrollment notice sent")
	return nil
}
