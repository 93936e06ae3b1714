package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/campushub/mentorhub/internal/auth"
	"github.com/campushub/mentorhub/internal/handlers"
	"github.com/campushub/mentorhub/internal/middleware"
	"github.com/campushub/mentorhub/internal/notifications"
	"github.com/campushub/mentorhub/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// mentoring workflow routes. A nil alarms dispatcher gets constructed on the
// spot; callers that run the retry sweep pass their own.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, hub *notifications.Hub, alarms *services.AlarmService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if alarms == nil {
		var err error
		alarms, err = services.NewAlarmService(db, hub)
		if err != nil {
			return nil, err
		}
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	health := handlers.NewHealthHandler(db)
	r.GET("/health", health.Health)

	authHandler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return nil, err
	}

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	// Authenticated auth routes
	api.GET("/auth/me", authHandler.Me)

	alarmHandler, err := handlers.NewAlarmHandler(alarms, hub, jwt)
	if err != nil {
		return nil, err
	}

	recruitmentHandler, err := handlers.NewRecruitmentHandler(db)
	if err != nil {
		return nil, err
	}
	applicationHandler, err := handlers.NewApplicationHandler(db, alarms)
	if err != nil {
		return nil, err
	}
	matchingHandler, err := handlers.NewMatchingHandler(db, alarms)
	if err != nil {
		return nil, err
	}
	chatHandler, err := handlers.NewChatHandler(db, alarms)
	if err != nil {
		return nil, err
	}

	semesterHandler, err := handlers.NewSemesterHandler(db)
	if err != nil {
		return nil, err
	}
	api.GET("/semesters", semesterHandler.List)

	registerRecruitmentRoutes(api, recruitmentHandler, applicationHandler)
	registerApplicationRoutes(api, applicationHandler)
	registerMatchingRoutes(api, matchingHandler, chatHandler)
	registerAlarmRoutes(r, api, alarmHandler)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
