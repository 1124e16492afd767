package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/domain/entity"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
	"github.com/oksasatya/course-enrollment/pkg/response"
	"github.com/oksasatya/course-enrollment/pkg/validation"
)

const maxCoverBytes = 5 << 20

type CourseHandler struct {
	Svc    *application.CourseService
	Logger *logrus.Logger
}

func NewCourseHandler(svc *application.CourseService, logger *logrus.Logger) *CourseHandler {
	return &CourseHandler{Svc: svc, Logger: logger}
}

type courseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type searchQuery struct {
	Q     string `form:"q" binding:"required,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type courseResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	CoverURL     string    `json:"cover_url,omitempty"`
	TeacherID    string    `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name,omitempty"`
	TeacherEmail string    `json:"teacher_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CanManage    *bool     `json:"can_manage,omitempty"`
}

func toCourseResponse(c *entity.Course) courseResponse {
	return courseResponse{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		CoverURL:     c.CoverURL,
		TeacherID:    c.TeacherID,
		TeacherName:  c.TeacherName,
		TeacherEmail: c.TeacherEmail,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toCourseList(items []entity.Course) []courseResponse {
	out := make([]courseResponse, 0, len(items))
	for i := range items {
		out = append(out, toCourseResponse(&items[i]))
	}
	return out
}

func (h *CourseHandler) List(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), middleware.CurrentPrincipal(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseList(items), "courses", map[string]any{"count": len(items)})
}

func (h *CourseHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	items, err := h.Svc.Search(c.Request.Context(), q.Q, q.Limit)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseList(items), "courses", map[string]any{"count": len(items)})
}

func (h *CourseHandler) Get(c *gin.Context) {
	course, canManage, err := h.Svc.Get(c.Request.Context(), middleware.CurrentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	res := toCourseResponse(course)
	res.CanManage = &canManage
	response.Success(c, http.StatusOK, res, "course", nil)
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	course, err := h.Svc.Create(c.Request.Context(), middleware.CurrentPrincipal(c), application.CourseInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toCourseResponse(course), "course created", nil)
}

func (h *CourseHandler) Update(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	course, err := h.Svc.Update(c.Request.Context(), middleware.CurrentPrincipal(c), c.Param("id"), application.CourseInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseResponse(course), "course updated", nil)
}

func (h *CourseHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), middleware.CurrentPrincipal(c), id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"id": id, "deleted": true}, "course deleted", nil)
}

// UploadCover accepts a multipart "cover" file.
func (h *CourseHandler) UploadCover(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCoverBytes+1024)
	fh, err := c.FormFile("cover")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.Error[any](c, http.StatusRequestEntityTooLarge, "cover too large", nil)
			return
		}
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"cover": "is required"})
		return
	}
	if fh.Size > maxCoverBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "cover too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"cover": "unreadable"})
		return
	}
	defer func() { _ = f.Close() }()

	course, err := h.Svc.UploadCover(c.Request.Context(), middleware.CurrentPrincipal(c), c.Param("id"), f, fh.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toCourseResponse(course), "cover updated", nil)
}
