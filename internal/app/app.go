package app

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"villabook/internal/cache"
	"villabook/internal/config"
	"villabook/internal/crm"
	"villabook/internal/database"
	"villabook/internal/events"
	"villabook/internal/jobs"
	"villabook/internal/middleware"
	"villabook/internal/modules/admin"
	"villabook/internal/modules/auth"
	"villabook/internal/modules/booking"
	"villabook/internal/modules/payment"
	"villabook/internal/modules/property"
	"villabook/internal/notification"
	"villabook/internal/pkg/jwt"
	"villabook/internal/repository"
)

const webhookDedupePrefix = "stripe:evt:"

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Events events.Publisher
	JWT    *jwt.Service

	Users      *repository.UserRepository
	Properties *repository.PropertyRepository
	Bookings   *repository.BookingRepository

	Auth     *auth.Service
	Property *property.Service
	Booking  *booking.Service
	Payment  *payment.Service
	Admin    *admin.Service
	CRM      *crm.Syncer
	Jobs     *jobs.Runner
}

// New connects to the configured backends and wires every module.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		MaxIdleConns: cfg.DBMaxIdle,
		MaxOpenConns: cfg.DBMaxOpen,
	})
	if err != nil {
		return nil, err
	}
	return NewWithDB(cfg, db), nil
}

// NewWithDB wires the modules on top of an open database.
func NewWithDB(cfg *config.Config, db *gorm.DB) *App {
	a := &App{
		Config:     cfg,
		DB:         db,
		Redis:      cache.NewRedisClient(cfg.RedisURL),
		Events:     events.NewPublisher(cfg.RabbitMQURL),
		JWT:        jwt.New(cfg.JWTSecret, cfg.JWTTTL),
		Users:      repository.NewUserRepository(db),
		Properties: repository.NewPropertyRepository(db),
		Bookings:   repository.NewBookingRepository(db),
	}

	var contacts crm.ContactUpserter
	if cfg.CRM.Enabled() {
		contacts = crm.NewClient(cfg.CRM)
	}
	a.CRM = crm.NewSyncer(contacts, a.Users)

	notifier := notification.NewNotifier(notification.NewMailer(cfg.SMTP))

	var (
		gateway  payment.Gateway
		refunder booking.Refunder
	)
	if cfg.Stripe.SecretKey != "" {
		sg := payment.NewStripeGateway(cfg.Stripe)
		gateway, refunder = sg, sg
	} else {
		log.Printf("level=warn msg=stripe disabled, payment intents and provider refunds unavailable")
	}

	a.Auth = auth.NewService(a.Users, a.JWT, cfg.JWTTTL, a.CRM)
	a.Property = property.NewService(a.Properties, a.Users, notifier, cfg.Stripe.Currency)
	a.Booking = booking.NewService(a.Bookings, a.Properties, a.Users, notifier, a.Events, refunder)
	a.Payment = payment.NewService(gateway, a.Booking, a.Bookings,
		cache.NewDeduper(a.Redis, webhookDedupePrefix, cfg.DedupeTTL), log.Printf)
	a.Admin = admin.NewService(a.Users, a.Properties, a.Bookings)
	a.Jobs = jobs.New(cfg.Jobs, a.Booking, a.CRM)
	return a
}

// Router builds the gin engine with every route mounted under /api.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), middleware.RequestID(), middleware.ErrorLogger(), middleware.CORS(a.Config.CORSOrigins))

	r.GET("/healthz", a.health)

	limiter := middleware.NewRateLimiter(a.Config.RateLimit, a.Redis).Middleware()

	authHandler := auth.NewHandler(a.Auth)
	propertyHandler := property.NewHandler(a.Property)
	bookingHandler := booking.NewHandler(a.Booking)
	paymentHandler := payment.NewHandler(a.Payment, log.Printf)
	adminHandler := admin.NewHandler(a.Admin)

	api := r.Group("/api")
	authHandler.RegisterPublicRoutes(api, limiter)
	optionalAuth := middleware.OptionalJWTAuth(a.JWT)
	propertyHandler.RegisterPublicRoutes(api, optionalAuth)
	bookingHandler.RegisterPublicRoutes(api, optionalAuth)
	paymentHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.JWTAuth(a.JWT))
	authHandler.RegisterProtectedRoutes(protected)
	propertyHandler.RegisterOwnerRoutes(protected)
	propertyHandler.RegisterAdminRoutes(protected)
	bookingHandler.RegisterRoutes(protected, limiter)
	paymentHandler.RegisterProtectedRoutes(protected)
	adminHandler.RegisterRoutes(protected)

	return r
}

func (a *App) health(c *gin.Context) {
	status := gin.H{"status": "ok", "database": "ok"}
	code := http.StatusOK
	if sqlDB, err := a.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status["status"], status["database"] = "degraded", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if a.Redis != nil {
		status["redis"] = "ok"
		if err := a.Redis.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = "unreachable"
		}
	}
	c.JSON(code, status)
}

// Close releases the broker, cache and database connections.
func (a *App) Close() error {
	if err := a.Jobs.Shutdown(); err != nil {
		log.Printf("level=warn msg=scheduler shutdown failed err=%v", err)
	}
	if err := a.Events.Close(); err != nil {
		log.Printf("level=warn msg=event publisher close failed err=%v", err)
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	return sqlDB.Close()
}
