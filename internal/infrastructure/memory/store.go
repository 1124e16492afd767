// Package memory is an in-process adapter for the course, enrollment and user
// repositories. It mirrors the Postgres constraints (unique enrollment pair, course
// foreign key with cascade) and is used by tests and by STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/repository"
)

type pairKey struct {
	courseID  string
	studentID string
}

// Store holds all tables behind one lock, the way a single database would.
type Store struct {
	mu sync.RWMutex

	users       map[string]entity.User
	courses     map[string]entity.Course
	enrollments map[pairKey]entity.Enrollment

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       map[string]entity.User{},
		courses:     map[string]entity.Course{},
		enrollments: map[pairKey]entity.Enrollment{},
		now:         time.Now,
	}
}

// PutUser inserts or replaces an identity-provider account.
func (s *Store) PutUser(u entity.User) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	return u
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Courses() *CourseRepository         { return &CourseRepository{s: s} }
func (s *Store) Enrollments() *EnrollmentRepository { return &EnrollmentRepository{s: s} }

// EnrollmentCount returns how many rows exist for the pair.
func (s *Store) EnrollmentCount(courseID, studentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.enrollments[pairKey{courseID, studentID}]; ok {
		return 1
	}
	return 0
}

type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type CourseRepository struct{ s *Store }

func (r *CourseRepository) List(_ context.Context) ([]entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		out = append(out, r.withTeacher(c))
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *CourseRepository) SearchByTitle(_ context.Context, q string, limit int) ([]entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]entity.Course, 0)
	for _, c := range r.s.courses {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			out = append(out, r.withTeacher(c))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CourseRepository) GetByID(_ context.Context, id string) (*entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = r.withTeacher(c)
	return &c, nil
}

// withTeacher fills the joined teacher fields; callers hold the read lock.
func (r *CourseRepository) withTeacher(c entity.Course) entity.Course {
	t := r.s.users[c.TeacherID]
	c.TeacherName = t.Name
	c.TeacherEmail = t.Email
	return c
}

func (r *CourseRepository) Create(_ context.Context, c *entity.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.NewString()
	now := r.s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.s.courses[c.ID] = *c
	return nil
}

func (r *CourseRepository) Update(_ context.Context, c *entity.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.courses[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Title = c.Title
	cur.Description = c.Description
	cur.CoverURL = c.CoverURL
	cur.UpdatedAt = r.s.now().UTC()
	r.s.courses[c.ID] = cur
	*c = r.withTeacher(cur)
	return nil
}

func (r *CourseRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.courses, id)
	for k := range r.s.enrollments {
		if k.courseID == id {
			delete(r.s.enrollments, k)
		}
	}
	return nil
}

type EnrollmentRepository struct{ s *Store }

func (r *EnrollmentRepository) Insert(_ context.Context, e *entity.Enrollment) (repository.InsertResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.courses[e.CourseID]; !ok {
		return 0, repository.ErrCourseReference
	}
	k := pairKey{e.CourseID, e.StudentID}
	if _, ok := r.s.enrollments[k]; ok {
		return repository.InsertConflict, nil
	}
	e.ID = uuid.NewString()
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = r.s.now().UTC()
	}
	r.s.enrollments[k] = *e
	return repository.InsertCreated, nil
}

func (r *EnrollmentRepository) Delete(_ context.Context, courseID, studentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := pairKey{courseID, studentID}
	if _, ok := r.s.enrollments[k]; !ok {
		return false, nil
	}
	delete(r.s.enrollments, k)
	return true, nil
}

func (r *EnrollmentRepository) Find(_ context.Context, courseID, studentID string) (*entity.Enrollment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.enrollments[pairKey{courseID, studentID}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *EnrollmentRepository) ListByStudent(_ context.Context, studentID string) ([]entity.StudentCourse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.StudentCourse, 0)
	for k, e := range r.s.enrollments {
		if k.studentID != studentID {
			continue
		}
		c := r.s.courses[k.courseID]
		t := r.s.users[c.TeacherID]
		out = append(out, entity.StudentCourse{
			Enrollment:   e,
			CourseTitle:  c.Title,
			TeacherID:    c.TeacherID,
			TeacherName:  t.Name,
			TeacherEmail: t.Email,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].EnrolledAt.After(out[j].EnrolledAt)
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out, nil
}

func (r *EnrollmentRepository) ListByCourse(_ context.Context, courseID string) ([]entity.RosterEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.RosterEntry, 0)
	for k, e := range r.s.enrollments {
		if k.courseID != courseID {
			continue
		}
		u := r.s.users[k.studentID]
		out = append(out, entity.RosterEntry{Enrollment: e, StudentEmail: u.Email, StudentName: u.Name})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentEmail != out[j].StudentEmail {
			return out[i].StudentEmail < out[j].StudentEmail
		}
		if !out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].EnrolledAt.Before(out[j].EnrolledAt)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func sortNewestFirst(cs []entity.Course) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

var (
	_ repository.UserRepository       = (*UserRepository)(nil)
	_ repository.CourseRepository     = (*CourseRepository)(nil)
	_ repository.EnrollmentRepository = (*EnrollmentRepository)(nil)
)
