package repository

import (
	"context"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
)

// InsertResult tells a successful insert apart from a uniqueness conflict on
// (course_id, student_id). Any other failure is returned as an error.
type InsertResult int

const (
	InsertCreated InsertResult = iota + 1
	InsertConflict
)

func (r InsertResult) String() string {
	switch r {
	case InsertCreated:
		return "created"
	case InsertConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// EnrollmentRepository is backed by a store that enforces uniqueness of
// (course_id, student_id). That constraint is the only mutual exclusion relied upon.
type EnrollmentRepository interface {
	Insert(ctx context.Context, e *entity.Enrollment) (InsertResult, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, courseID, studentID string) (bool, error)
	// Find returns nil without error when the pair is not enrolled.
	Find(ctx context.Context, courseID, studentID string) (*entity.Enrollment, error)
	// ListByStudent orders by enrollment time, most recent first.
	ListByStudent(ctx context.Context, studentID string) ([]entity.StudentCourse, error)
	// ListByCourse orders by student email, then enrollment time.
	ListByCourse(ctx context.Context, courseID string) ([]entity.RosterEntry, error)
}
