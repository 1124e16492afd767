package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintClassification(t *testing.T) {
	dupPair := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: enrollmentPairConstraint}
	dupOther := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "enrollments_pkey"}
	fkCourse := &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: enrollmentCourseConstraint}
	fkStudent := &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "enrollments_student_id_fkey"}

	tests := []struct {
		name     string
		err      error
		unique   bool
		fkCourse bool
	}{
		{name: "pair duplicate", err: dupPair, unique: true},
		{name: "wrapped pair duplicate", err: fmt.Errorf("insert: %w", dupPair), unique: true},
		{name: "other unique index", err: dupOther},
		{name: "course fk", err: fkCourse, fkCourse: true},
		{name: "student fk", err: fkStudent},
		{name: "plain error", err: errors.New("connection reset")},
		{name: "nil", err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, isUniqueViolation(tt.err, enrollmentPairConstraint))
			assert.Equal(t, tt.fkCourse, isForeignKeyViolation(tt.err, enrollmentCourseConstraint))
		})
	}
}

func TestIsInvalidID(t *testing.T) {
	assert.True(t, isInvalidID(&pgconn.PgError{Code: codeInvalidText}))
	assert.False(t, isInvalidID(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isInvalidID(errors.New("x")))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% go\_lang \\ x`, escapeLike(`100% go_lang \ x`))
}
