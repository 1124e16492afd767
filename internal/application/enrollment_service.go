package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
)

// EnrollOutcome is the terminal state reached by Enroll.
type EnrollOutcome int

const (
	EnrolledNow EnrollOutcome = iota + 1
	AlreadyEnrolled
)

func (o EnrollOutcome) String() string {
	switch o {
	case EnrolledNow:
		return "enrolled"
	case AlreadyEnrolled:
		return "already_enrolled"
	default:
		return "unknown"
	}
}

// UnenrollOutcome is the terminal state reached by Unenroll.
type UnenrollOutcome int

const (
	UnenrolledNow UnenrollOutcome = iota + 1
	NotEnrolled
)

func (o UnenrollOutcome) String() string {
	switch o {
	case UnenrolledNow:
		return "unenrolled"
	case NotEnrolled:
		return "not_enrolled"
	default:
		return "unknown"
	}
}

// EnrollmentService is the only mutator of enrollment state. It never checks before
// inserting: the store's (course_id, student_id) constraint decides, and a conflict is
// reported as AlreadyEnrolled. No in-process lock is taken because other instances share
// the same store.
type EnrollmentService struct {
	Courses     repo.CourseRepository
	Enrollments repo.EnrollmentRepository
	Events      EventPublisher
	Logger      *logrus.Logger

	now func() time.Time
}

// NewEnrollmentService wires the service. events may be nil.
func NewEnrollmentService(courses repo.CourseRepository, enrollments repo.EnrollmentRepository, events EventPublisher, logger *logrus.Logger) *EnrollmentService {
	return &EnrollmentService{
		Courses:     courses,
		Enrollments: enrollments,
		Events:      events,
		Logger:      resolveLogger(logger),
		now:         time.Now,
	}
}

// Enroll moves (courseID, studentID) to Enrolled. Errors are ErrCourseNotFound or *StorageError.
func (s *EnrollmentService) Enroll(ctx context.Context, courseID, studentID string) (EnrollOutcome, error) {
	fields := logrus.Fields{"course_id": courseID, "student_id": studentID}

	course, err := s.Courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrCourseNotFound
		}
		return 0, s.storageFailure("get course", err, fields)
	}

	e := &entity.Enrollment{CourseID: courseID, StudentID: studentID, EnrolledAt: s.now().UTC()}
	res, err := s.Enrollments.Insert(ctx, e)
	if err != nil {
		// the course was deleted between the lookup and the insert
		if errors.Is(err, repo.ErrCourseReference) {
			return 0, ErrCourseNotFound
		}
		return 0, s.storageFailure("insert enrollment", err, fields)
	}

	switch res {
	case repo.InsertCreated:
		s.Logger.WithFields(fields).WithField("enrollment_id", e.ID).Info("student enrolled")
		s.publish(ctx, EventEnrollmentCreated, course.ID, course.Title, studentID)
		return EnrolledNow, nil
	case repo.InsertConflict:
		s.Logger.WithFields(fields).Debug("enrollment already exists")
		return AlreadyEnrolled, nil
	default:
		return 0, s.storageFailure("insert enrollment", fmt.Errorf("unexpected insert result %d", res), fields)
	}
}

// Unenroll moves (courseID, studentID) to NotEnrolled. The only error is *StorageError.
func (s *EnrollmentService) Unenroll(ctx context.Context, courseID, studentID string) (UnenrollOutcome, error) {
	fields := logrus.Fields{"course_id": courseID, "student_id": studentID}

	existing, err := s.Enrollments.Find(ctx, courseID, studentID)
	if err != nil {
		return 0, s.storageFailure("find enrollment", err, fields)
	}
	if existing == nil {
		return NotEnrolled, nil
	}

	deleted, err := s.Enrollments.Delete(ctx, courseID, studentID)
	if err != nil {
		return 0, s.storageFailure("delete enrollment", err, fields)
	}
	if !deleted {
		// a concurrent unenroll removed the row first
		return NotEnrolled, nil
	}

	s.Logger.WithFields(fields).Info("student unenrolled")
	s.publish(ctx, EventEnrollmentRemoved, courseID, "", studentID)
	return UnenrolledNow, nil
}

// EnrollAs enrolls the calling student after the gate allows it.
func (s *EnrollmentService) EnrollAs(ctx context.Context, p policy.Principal, courseID string) (EnrollOutcome, error) {
	if !policy.CanEnroll(p).Allowed() {
		return 0, ErrAccessDenied
	}
	return s.Enroll(ctx, courseID, p.UserID)
}

// UnenrollAs unenrolls the calling student after the gate allows it.
func (s *EnrollmentService) UnenrollAs(ctx context.Context, p policy.Principal, courseID string) (UnenrollOutcome, error) {
	if !policy.CanUnenroll(p).Allowed() {
		return 0, ErrAccessDenied
	}
	return s.Unenroll(ctx, courseID, p.UserID)
}

// ListForStudent returns the student's courses, most recently enrolled first.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string) ([]entity.StudentCourse, error) {
	items, err := s.Enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, s.storageFailure("list by student", err, logrus.Fields{"student_id": studentID})
	}
	return items, nil
}

// ListForCourse returns the course roster ordered by student email.
func (s *EnrollmentService) ListForCourse(ctx context.Context, courseID string) ([]entity.RosterEntry, error) {
	items, err := s.Enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, s.storageFailure("list by course", err, logrus.Fields{"course_id": courseID})
	}
	return items, nil
}

// MyCourses is ListForStudent for the calling student.
func (s *EnrollmentService) MyCourses(ctx context.Context, p policy.Principal) ([]entity.StudentCourse, error) {
	if !policy.CanViewMyCourses(p).Allowed() {
		return nil, ErrAccessDenied
	}
	return s.ListForStudent(ctx, p.UserID)
}

// Roster fetches the course, then asks the gate, then lists. A missing course is
// reported before any authorization decision.
func (s *EnrollmentService) Roster(ctx context.Context, p policy.Principal, courseID string) (*entity.Course, []entity.RosterEntry, error) {
	course, err := s.Courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrCourseNotFound
		}
		return nil, nil, s.storageFailure("get course", err, logrus.Fields{"course_id": courseID})
	}
	if !policy.CanViewRoster(p, course).Allowed() {
		return nil, nil, ErrAccessDenied
	}
	items, err := s.ListForCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	return course, items, nil
}

// publish is best effort: the transition has already settled in the store.
func (s *EnrollmentService) publish(ctx context.Context, eventType, courseID, courseTitle, studentID string) {
	if s.Events == nil {
		return
	}
	ev := EnrollmentEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OccurredAt:  s.now().UTC(),
		CourseID:    courseID,
		CourseTitle: courseTitle,
		StudentID:   studentID,
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"course_id":  courseID,
			"student_id": studentID,
		}).Warn("publish enrollment event failed")
	}
}

func (s *EnrollmentService) storageFailure(op string, err error, fields logrus.Fields) error {
	s.Logger.WithError(err).WithFields(fields).WithField("op", op).Error("enrollment storage failure")
	return &StorageError{Op: op, Err: err}
}
