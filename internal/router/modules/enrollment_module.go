package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/course-enrollment/internal/interface/http"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
)

type EnrollmentModule struct {
	Handler *handlers.EnrollmentHandler
	Redis   *redis.Client
}

func NewEnrollmentModule(h *handlers.EnrollmentHandler, rdb *redis.Client) *EnrollmentModule {
	return &EnrollmentModule{Handler: h, Redis: rdb}
}

func (m *EnrollmentModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.RequireAuth())
	auth.Use(middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/courses/:id/enrollment", m.Handler.Enroll)
		auth.DELETE("/courses/:id/enrollment", m.Handler.Unenroll)
		auth.GET("/courses/:id/students", m.Handler.Roster)
		auth.GET("/me/courses", m.Handler.MyCourses)
	}
}
