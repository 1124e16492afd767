package entity

import "time"

// Course is published by a teacher (or an admin on a teacher's behalf).
// TeacherID is fixed at creation; only Title, Description and CoverURL change afterwards.
type Course struct {
	ID          string
	Title       string
	Description string
	CoverURL    string
	TeacherID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// read-only, joined from the teacher's account when listing or fetching
	TeacherName  string
	TeacherEmail string
}
