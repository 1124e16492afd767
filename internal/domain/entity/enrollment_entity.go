package entity

import "time"

// Enrollment links a student to a course. At most one exists per (CourseID, StudentID);
// rows are inserted and deleted, never updated.
type Enrollment struct {
	ID         string
	CourseID   string
	StudentID  string
	EnrolledAt time.Time
}

// StudentCourse is one line of a student's own course list.
type StudentCourse struct {
	Enrollment
	CourseTitle  string
	TeacherID    string
	TeacherName  string
	TeacherEmail string
}

// RosterEntry is one student on a course roster.
type RosterEntry struct {
	Enrollment
	StudentEmail string
	StudentName  string
}
