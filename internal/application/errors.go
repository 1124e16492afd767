package application

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	// ErrAccessDenied carries no detail about why the gate denied.
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidToken = errors.New("invalid access token")
)

// StorageError is an unexpected persistence failure. It is surfaced to the caller
// and never retried here.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func resolveLogger(logger *logrus.Logger) *logrus.Logger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
