package repository

import (
	"context"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
)

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	// List returns every course, newest first.
	List(ctx context.Context) ([]entity.Course, error)
	// SearchByTitle does a case-insensitive substring match on the title.
	SearchByTitle(ctx context.Context, q string, limit int) ([]entity.Course, error)
	GetByID(ctx context.Context, id string) (*entity.Course, error)
	Create(ctx context.Context, c *entity.Course) error
	// Update persists Title, Description and CoverURL. TeacherID is never written.
	Update(ctx context.Context, c *entity.Course) error
	Delete(ctx context.Context, id string) error
}
