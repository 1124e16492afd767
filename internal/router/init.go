package router

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/container"
	repo "github.com/oksasatya/course-enrollment/internal/domain/repository"
	"github.com/oksasatya/course-enrollment/internal/infrastructure/cache"
	"github.com/oksasatya/course-enrollment/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/course-enrollment/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/course-enrollment/internal/interface/http"
	"github.com/oksasatya/course-enrollment/internal/interface/middleware"
	"github.com/oksasatya/course-enrollment/internal/router/modules"
)

// Repositories is the storage a deployment runs on.
type Repositories struct {
	Users       repo.UserRepository
	Courses     repo.CourseRepository
	Enrollments repo.EnrollmentRepository
}

// Deps is everything Mount needs. Redis may be nil; rate limiting is skipped then.
type Deps struct {
	Identity     *application.IdentityService
	Courses      *application.CourseService
	Enrollments  *application.EnrollmentService
	Redis        *redis.Client
	Logger       *logrus.Logger
	DebugMetrics bool
}

func buildRepositories() Repositories {
	if pool := container.GetPGPool(); pool != nil {
		return Repositories{
			Users:       pginfra.NewUserRepository(pool),
			Courses:     pginfra.NewCourseRepository(pool),
			Enrollments: pginfra.NewEnrollmentRepository(pool),
		}
	}
	store := container.GetMemoryStore()
	if store == nil {
		store = memory.NewStore()
		container.SetMemoryStore(store)
	}
	return Repositories{Users: store.Users(), Courses: store.Courses(), Enrollments: store.Enrollments()}
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repos := buildRepositories()

	var idCache application.IdentityCache
	if rdb := container.GetRedis(); rdb != nil {
		idCache = cache.NewIdentityCache(rdb)
	}

	// only assign a non-nil publisher so the interface stays nil when events are off
	var events application.EventPublisher
	if pub := container.GetRabbitPub(); pub != nil {
		events = pub
	}

	return Deps{
		Identity:     application.NewIdentityService(container.GetJWT(), repos.Users, idCache, cfg.IdentityCacheTTL, logger),
		Courses:      application.NewCourseService(repos.Courses, logger, container.GetES(), cfg.ESCoursesIndex, container.GetGCS(), cfg.GCSBucket),
		Enrollments:  application.NewEnrollmentService(repos.Courses, repos.Enrollments, events, logger),
		Redis:        container.GetRedis(),
		Logger:       logger,
		DebugMetrics: cfg.DebugMetricsEnabled,
	}
}

// Mount installs identity resolution and every feature module on the registry.
func Mount(r *Registry, d Deps) {
	r.Use(middleware.Identity(d.Identity, d.Logger))
	r.Add(modules.NewCourseModule(handlers.NewCourseHandler(d.Courses, d.Logger), d.Redis))
	r.Add(modules.NewEnrollmentModule(handlers.NewEnrollmentHandler(d.Enrollments, d.Logger), d.Redis))
	if d.DebugMetrics {
		r.Add(modules.NewDebugModule(d.Redis))
	}
}

// InitModules initializes all application modules from the container and registers
// them with the router registry. Call once during startup.
func InitModules(r *Registry) {
	Mount(r, buildDeps())
}
