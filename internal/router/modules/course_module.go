package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/course-enrollment/internal/interface/http"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
)

// CourseModule wires course routes.
// Public: GET /courses, GET /courses/search, GET /courses/:id
// Authenticated: POST /courses, PUT /courses/:id, DELETE /courses/:id, PUT /courses/:id/cover
type CourseModule struct {
	Handler *handlers.CourseHandler
	Redis   *redis.Client
}

func NewCourseModule(h *handlers.CourseHandler, rdb *redis.Client) *CourseModule {
	return &CourseModule{Handler: h, Redis: rdb}
}

func (m *CourseModule) Register(rg *gin.RouterGroup) {
	searchLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.GET("/courses", m.Handler.List)
	rg.GET("/courses/search", searchLimiter, m.Handler.Search)
	rg.GET("/courses/:id", m.Handler.Get)

	auth := rg.Group("/")
	auth.Use(middleware.RequireAuth())
	auth.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/courses", m.Handler.Create)
		auth.PUT("/courses/:id", m.Handler.Update)
		auth.DELETE("/courses/:id", m.Handler.Delete)
		auth.PUT("/courses/:id/cover", m.Handler.UploadCover)
	}
}
