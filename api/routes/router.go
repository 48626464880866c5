// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"sorso/docs"
	"sorso/internal/auth"
	"sorso/internal/availability"
	"sorso/internal/events"
	"sorso/internal/packages"
	"sorso/internal/reservations"
	"sorso/internal/shared/config"
	"sorso/internal/shared/database"
	"sorso/internal/shared/middleware"
	"sorso/internal/storage"
	"sorso/pkg/cache"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	store    *storage.Store
	notifier reservations.AlertNotifier
	log      *logger.Logger

	cacheService cache.Service
	revoked      auth.RevocationStore
}

// NewRouter creates a new router instance. notifier may be nil when staff alerts are off.
func NewRouter(cfg *config.Config, db *database.DB, store *storage.Store, notifier reservations.AlertNotifier, log *logger.Logger) *Router {
	if log == nil {
		log = logger.GetDefault()
	}
	r := &Router{
		config:   cfg,
		db:       db,
		store:    store,
		notifier: notifier,
		log:      log,
	}
	if rdb := db.GetRedisClient(); rdb != nil {
		r.cacheService = cache.NewService(rdb)
		r.revoked = auth.NewRedisRevocationStore(rdb)
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)
	r.setupDocsRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())

	var revoked middleware.RevocationChecker
	if r.revoked != nil {
		revoked = r.revoked
	}
	staff := api.Group("/staff")
	staff.Use(middleware.JWTAuth(r.config, revoked), middleware.RequireStaff())

	r.setupAuthRoutes(api, revoked)
	packages.SetupPackageRoutes(api, packages.NewController(packages.Default()))

	eventRepo := events.NewRepository(r.db.GetPostgreSQL())
	availabilityService := r.setupEventRoutes(api, staff, eventRepo)
	r.setupReservationRoutes(api, staff, eventRepo, availabilityService)
	r.setupStorageRoutes(engine, staff)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "sorso-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "sorso-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "operational",
			"api_version":   r.config.APIVersion,
			"notifications": r.notifier != nil,
			"timestamp":     time.Now(),
		})
	})
}

func (r *Router) setupDocsRoutes(engine *gin.Engine) {
	if r.config.IsProduction() {
		return
	}
	docs.SwaggerInfo.BasePath = r.config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup, revoked middleware.RevocationChecker) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.revoked, r.config, r.log)
	authController := auth.NewController(authService, r.log)

	auth.NewRouter(authController, r.config, revoked).SetupRoutes(rg)
}

// setupEventRoutes mounts events and per-package availability, which share the event repository
func (r *Router) setupEventRoutes(api, staff *gin.RouterGroup, eventRepo events.Repository) availability.Service {
	eventService := events.NewService(eventRepo, r.log)
	availabilityService := availability.NewService(availability.NewRepository(r.db.GetPostgreSQL()), eventRepo, r.log)
	if r.cacheService != nil {
		eventService.SetCacheService(r.cacheService)
		availabilityService.SetCacheService(r.cacheService)
	}

	events.SetupEventRoutes(api, staff, events.NewController(eventService))
	availability.SetupAvailabilityRoutes(api, staff, availability.NewController(availabilityService))
	return availabilityService
}

func (r *Router) setupReservationRoutes(api, staff *gin.RouterGroup, eventRepo events.Repository, availabilityService availability.Service) {
	reservationService := reservations.NewService(
		reservations.NewRepository(r.db.GetPostgreSQL()),
		eventRepo,
		availabilityService,
		r.notifier,
		r.log,
	)
	reservations.SetupReservationRoutes(api, staff, reservations.NewController(reservationService, r.log))
}

func (r *Router) setupStorageRoutes(engine *gin.Engine, staff *gin.RouterGroup) {
	if r.store == nil {
		return
	}
	storage.SetupStorageRoutes(engine, staff, storage.NewController(r.store, r.config.Storage.SignedURLTTL, r.log))
}
