package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/domain/repository"
)

const courseColumns = `c.id, c.title, COALESCE(c.description, ''), c.cover_url, c.teacher_id, c.created_at, c.updated_at,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

// courseSource joins the owning teacher so listings can show who teaches.
const courseSource = `courses c LEFT JOIN users u ON u.id = c.teacher_id`

type CourseRepository struct {
	pool *pgxpool.Pool
}

func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

func (r *CourseRepository) List(ctx context.Context) ([]entity.Course, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+courseColumns+`
		FROM `+courseSource+`
		ORDER BY c.created_at DESC, c.id
	`)
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

func (r *CourseRepository) SearchByTitle(ctx context.Context, q string, limit int) ([]entity.Course, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+courseColumns+`
		FROM `+courseSource+`
		WHERE c.title ILIKE '%' || $1 || '%'
		ORDER BY c.created_at DESC, c.id
		LIMIT $2
	`, escapeLike(strings.TrimSpace(q)), limit)
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	c := &entity.Course{}

	row := r.pool.QueryRow(ctx, `
		SELECT `+courseColumns+`
		FROM `+courseSource+`
		WHERE c.id = $1
	`, id)

	if err := scanCourse(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CourseRepository) Create(ctx context.Context, c *entity.Course) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO courses (title, description, cover_url, teacher_id)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING id, created_at, updated_at
	`, c.Title, c.Description, c.CoverURL, c.TeacherID)

	return row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CourseRepository) Update(ctx context.Context, c *entity.Course) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE courses
		SET title = $1, description = NULLIF($2, ''), cover_url = $3, updated_at = now()
		WHERE id = $4
		RETURNING teacher_id, created_at, updated_at
	`, c.Title, c.Description, c.CoverURL, c.ID)

	if err := row.Scan(&c.TeacherID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return repository.ErrNotFound
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanCourse(row pgx.Row, c *entity.Course) error {
	return row.Scan(&c.ID, &c.Title, &c.Description, &c.CoverURL, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt,
		&c.TeacherName, &c.TeacherEmail)
}

func collectCourses(rows pgx.Rows) ([]entity.Course, error) {
	defer rows.Close()
	out := make([]entity.Course, 0)
	for rows.Next() {
		var c entity.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ repository.CourseRepository = (*CourseRepository)(nil)
