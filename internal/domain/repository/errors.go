package repository

import "errors"

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrCourseReference is returned by EnrollmentRepository.Insert when the referenced
	// course no longer exists (foreign key rejected the row).
	ErrCourseReference = errors.New("enrollment references a missing course")
)
