package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
	"github.com/oksasatya/course-enrollment/internal/infrastructure/memory"
)

type brokenCourses struct {
	repo.CourseRepository
	err error
}

func (b *brokenCourses) GetByID(context.Context, string) (*entity.Course, error) { return nil, b.err }
func (b *brokenCourses) List(context.Context) ([]entity.Course, error)           { return nil, b.err }

func newCourseFixture(t *testing.T) (*memory.Store, *CourseService, policy.Principal) {
	t.Helper()
	store := memory.NewStore()
	teacher := store.PutUser(entity.User{Email: "t@example.com", Role: entity.RoleTeacher})
	return store, NewCourseService(store.Courses(), nil, nil, "", nil, ""), policy.Principal{UserID: teacher.ID, Role: entity.RoleTeacher}
}

func TestCourseCreate_TrimsAndOwns(t *testing.T) {
	_, svc, owner := newCourseFixture(t)

	c, err := svc.Create(context.Background(), owner, CourseInput{Title: "  Algorithms  ", Description: "graphs"})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms", c.Title)
	assert.Equal(t, owner.UserID, c.TeacherID)
	assert.NotEmpty(t, c.ID)
}

func TestCourseCreate_Validation(t *testing.T) {
	_, svc, owner := newCourseFixture(t)

	cases := []struct {
		name string
		in   CourseInput
	}{
		{"blank title", CourseInput{Title: "   "}},
		{"short after trim", CourseInput{Title: " ab "}},
		{"long title", CourseInput{Title: strings.Repeat("x", 101)}},
		{"long description", CourseInput{Title: "Valid", Description: strings.Repeat("d", 501)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tc.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCourseCreate_Roles(t *testing.T) {
	_, svc, _ := newCourseFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, policy.Principal{UserID: "s", Role: entity.RoleStudent}, CourseInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Create(ctx, policy.Anonymous(), CourseInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// the gate runs before validation
	_, err = svc.Create(ctx, policy.Anonymous(), CourseInput{})
	assert.ErrorIs(t, err, ErrAccessDenied)

	c, err := svc.Create(ctx, policy.Principal{UserID: "admin-1", Role: entity.RoleAdmin}, CourseInput{Title: "Admin course"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", c.TeacherID)
}

func TestCourseUpdate_KeepsTeacher(t *testing.T) {
	_, svc, owner := newCourseFixture(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, owner, CourseInput{Title: "Networks"})
	require.NoError(t, err)

	admin := policy.Principal{UserID: "admin-1", Role: entity.RoleAdmin}
	updated, err := svc.Update(ctx, admin, c.ID, CourseInput{Title: "Networks II", Description: "more"})
	require.NoError(t, err)
	assert.Equal(t, "Networks II", updated.Title)
	assert.Equal(t, owner.UserID, updated.TeacherID)
}

func TestCourseManage_NotFoundBeforeDeny(t *testing.T) {
	_, svc, _ := newCourseFixture(t)
	ctx := context.Background()
	stranger := policy.Principal{UserID: "x", Role: entity.RoleStudent}

	_, err := svc.Update(ctx, stranger, "missing", CourseInput{Title: "Whatever"})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	err = svc.Delete(ctx, stranger, "missing")
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, _, err = svc.Get(ctx, stranger, "missing")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseDelete_CascadesEnrollments(t *testing.T) {
	store, svc, owner := newCourseFixture(t)
	ctx := context.Background()
	student := store.PutUser(entity.User{Email: "s@example.com", Role: entity.RoleStudent})

	c, err := svc.Create(ctx, owner, CourseInput{Title: "Security"})
	require.NoError(t, err)
	enr := NewEnrollmentService(store.Courses(), store.Enrollments(), nil, nil)
	_, err = enr.Enroll(ctx, c.ID, student.ID)
	require.NoError(t, err)

	other := policy.Principal{UserID: "t2", Role: entity.RoleTeacher}
	assert.ErrorIs(t, svc.Delete(ctx, other, c.ID), ErrAccessDenied)

	require.NoError(t, svc.Delete(ctx, owner, c.ID))
	assert.Zero(t, store.EnrollmentCount(c.ID, student.ID))

	_, err = enr.Enroll(ctx, c.ID, student.ID)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseGet_CanManage(t *testing.T) {
	_, svc, owner := newCourseFixture(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, owner, CourseInput{Title: "Graphics"})
	require.NoError(t, err)

	cases := []struct {
		name string
		p    policy.Principal
		want bool
	}{
		{"owner", owner, true},
		{"admin", policy.Principal{UserID: "a", Role: entity.RoleAdmin}, true},
		{"other teacher", policy.Principal{UserID: "t2", Role: entity.RoleTeacher}, false},
		{"student", policy.Principal{UserID: "s", Role: entity.RoleStudent}, false},
		{"anonymous", policy.Anonymous(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, canManage, err := svc.Get(ctx, tc.p, c.ID)
			require.NoError(t, err)
			assert.Equal(t, c.ID, got.ID)
			assert.Equal(t, tc.want, canManage)
		})
	}
}

func TestCourseSearch_RepositoryFallback(t *testing.T) {
	_, svc, owner := newCourseFixture(t)
	ctx := context.Background()
	for _, title := range []string{"Intro to Go", "Advanced Go", "Rust basics"} {
		_, err := svc.Create(ctx, owner, CourseInput{Title: title})
		require.NoError(t, err)
	}

	items, err := svc.Search(ctx, "go", 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCourseUploadCover(t *testing.T) {
	_, svc, owner := newCourseFixture(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, owner, CourseInput{Title: "Design"})
	require.NoError(t, err)

	_, err = svc.UploadCover(ctx, owner, c.ID, strings.NewReader("x"), "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UploadCover(ctx, owner, c.ID, strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrCoverStorageDisabled)

	_, err = svc.UploadCover(ctx, policy.Principal{UserID: "t2", Role: entity.RoleTeacher}, c.ID, strings.NewReader("x"), "image/png")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCourseService_StorageError(t *testing.T) {
	boom := errors.New("pool closed")
	svc := NewCourseService(&brokenCourses{err: boom}, nil, nil, "", nil, "")
	ctx := context.Background()

	_, err := svc.List(ctx, policy.Anonymous())
	assert.True(t, IsStorageError(err))
	assert.ErrorIs(t, err, boom)

	_, _, err = svc.Get(ctx, policy.Anonymous(), "c")
	assert.True(t, IsStorageError(err))
}
