package handlers

import (
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
	"github.com/oksasatya/course-enrollment/pkg/response"
)

// enrollmentOutcomes is published on /debug/vars.
var enrollmentOutcomes = expvar.NewMap("enrollment_outcomes")

type EnrollmentHandler struct {
	Svc    *application.EnrollmentService
	Logger *logrus.Logger
}

func NewEnrollmentHandler(svc *application.EnrollmentService, logger *logrus.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{Svc: svc, Logger: logger}
}

type outcomeResponse struct {
	CourseID string `json:"course_id"`
	Outcome  string `json:"outcome"`
}

type myCourseResponse struct {
	CourseID     string    `json:"course_id"`
	CourseTitle  string    `json:"course_title"`
	TeacherID    string    `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name,omitempty"`
	TeacherEmail string    `json:"teacher_email,omitempty"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

type rosterResponse struct {
	StudentID    string    `json:"student_id"`
	StudentEmail string    `json:"student_email"`
	StudentName  string    `json:"student_name,omitempty"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

// Enroll answers 201 for a new enrollment and 200 when it already existed.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	courseID := c.Param("id")
	out, err := h.Svc.EnrollAs(c.Request.Context(), middleware.CurrentPrincipal(c), courseID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	enrollmentOutcomes.Add(out.String(), 1)
	status := http.StatusOK
	if out == application.EnrolledNow {
		status = http.StatusCreated
	}
	response.Success(c, status, outcomeResponse{CourseID: courseID, Outcome: out.String()}, out.String(), nil)
}

func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	courseID := c.Param("id")
	out, err := h.Svc.UnenrollAs(c.Request.Context(), middleware.CurrentPrincipal(c), courseID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	enrollmentOutcomes.Add(out.String(), 1)
	response.Success(c, http.StatusOK, outcomeResponse{CourseID: courseID, Outcome: out.String()}, out.String(), nil)
}

func (h *EnrollmentHandler) MyCourses(c *gin.Context) {
	items, err := h.Svc.MyCourses(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]myCourseResponse, 0, len(items))
	for _, it := range items {
		out = append(out, myCourseResponse{
			CourseID:     it.CourseID,
			CourseTitle:  it.CourseTitle,
			TeacherID:    it.TeacherID,
			TeacherName:  it.TeacherName,
			TeacherEmail: it.TeacherEmail,
			EnrolledAt:   it.EnrolledAt,
		})
	}
	response.Success(c, http.StatusOK, out, "my courses", map[string]any{"count": len(out)})
}

func (h *EnrollmentHandler) Roster(c *gin.Context) {
	course, items, err := h.Svc.Roster(c.Request.Context(), middleware.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]rosterResponse, 0, len(items))
	for _, it := range items {
		out = append(out, rosterResponse{
			StudentID:    it.StudentID,
			StudentEmail: it.StudentEmail,
			StudentName:  it.StudentName,
			EnrolledAt:   it.EnrolledAt,
		})
	}
	response.Success(c, http.StatusOK, out, "roster", map[string]any{"course_id": course.ID, "course_title": course.Title, "count": len(out)})
}
