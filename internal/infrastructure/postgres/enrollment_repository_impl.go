package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/repository"
)

// EnrollmentRepository relies on the enrollments_course_student_key unique
// constraint; it never checks for an existing row before inserting.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

func (r *EnrollmentRepository) Insert(ctx context.Context, e *entity.Enrollment) (repository.InsertResult, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO enrollments (course_id, student_id, enrolled_at)
		VALUES ($1, $2, COALESCE($3::timestamptz, now()))
		RETURNING id, enrolled_at
	`, e.CourseID, e.StudentID, nullTime(e))

	if err := row.Scan(&e.ID, &e.EnrolledAt); err != nil {
		switch {
		case isUniqueViolation(err, enrollmentPairConstraint):
			return repository.InsertConflict, nil
		case isForeignKeyViolation(err, enrollmentCourseConstraint), isInvalidID(err):
			return 0, repository.ErrCourseReference
		}
		return 0, err
	}
	return repository.InsertCreated, nil
}

func (r *EnrollmentRepository) Delete(ctx context.Context, courseID, studentID string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM enrollments
		WHERE course_id = $1 AND student_id = $2
	`, courseID, studentID)
	if err != nil {
		if isInvalidID(err) {
			return false, nil
		}
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (r *EnrollmentRepository) Find(ctx context.Context, courseID, studentID string) (*entity.Enrollment, error) {
	e := &entity.Enrollment{}

	row := r.pool.QueryRow(ctx, `
		SELECT id, course_id, student_id, enrolled_at
		FROM enrollments
		WHERE course_id = $1 AND student_id = $2
	`, courseID, studentID)

	if err := row.Scan(&e.ID, &e.CourseID, &e.StudentID, &e.EnrolledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]entity.StudentCourse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.course_id, e.student_id, e.enrolled_at, c.title, c.teacher_id,
			COALESCE(t.name, ''), COALESCE(t.email, '')
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		LEFT JOIN users t ON t.id = c.teacher_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC, e.course_id
	`, studentID)
	if err != nil {
		if isInvalidID(err) {
			return []entity.StudentCourse{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.StudentCourse, 0)
	for rows.Next() {
		var sc entity.StudentCourse
		if err := rows.Scan(&sc.ID, &sc.CourseID, &sc.StudentID, &sc.EnrolledAt, &sc.CourseTitle, &sc.TeacherID,
			&sc.TeacherName, &sc.TeacherEmail); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]entity.RosterEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.course_id, e.student_id, e.enrolled_at, u.email, u.name
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY u.email ASC, e.enrolled_at ASC, e.student_id
	`, courseID)
	if err != nil {
		if isInvalidID(err) {
			return []entity.RosterEntry{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.RosterEntry, 0)
	for rows.Next() {
		var re entity.RosterEntry
		if err := rows.Scan(&re.ID, &re.CourseID, &re.StudentID, &re.EnrolledAt, &re.StudentEmail, &re.StudentName); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

// nullTime lets the database stamp enrolled_at when the caller left it zero.
func nullTime(e *entity.Enrollment) any {
	if e.EnrolledAt.IsZero() {
		return nil
	}
	return e.EnrolledAt
}

var _ repository.EnrollmentRepository = (*EnrollmentRepository)(nil)
