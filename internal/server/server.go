package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/JonasLeetTheWay/eventreg-go/internal/config"
	"github.com/JonasLeetTheWay/eventreg-go/internal/middleware"
	"github.com/JonasLeetTheWay/eventreg-go/internal/notify"
	"github.com/JonasLeetTheWay/eventreg-go/internal/payment"
	"github.com/JonasLeetTheWay/eventreg-go/internal/redis"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/category"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/event"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/menu"
	paymentsvc "github.com/JonasLeetTheWay/eventreg-go/internal/services/payment"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/reconcile"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/registration"
	"github.com/JonasLeetTheWay/eventreg-go/internal/services/user"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators of the API. Redis and Publisher are optional.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Log       *zerolog.Logger
	Redis     *redis.Client
	Publisher notify.Publisher
	Processor payment.Processor
}

type Server struct {
	engine     *gin.Engine
	config     *config.Config
	db         *gorm.DB
	log        *zerolog.Logger
	Reconciler *reconcile.Service
}

func New(d Deps) *Server {
	if d.Publisher == nil {
		d.Publisher = notify.Nop{}
	}
	if d.Processor == nil {
		d.Processor = payment.NewMockProcessor(d.Config)
	}
	gin.SetMode(d.Config.GinMode)

	s := &Server{
		engine:     gin.New(),
		config:     d.Config,
		db:         d.DB,
		log:        d.Log,
		Reconciler: reconcile.NewService(d.DB, d.Log),
	}

	r := s.engine
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(cors.New(corsConfig(d.Config.CORSOrigins)))
	r.Use(middleware.ErrorHandler(d.Log))
	r.NoRoute(middleware.NotFound)
	r.GET("/health", s.HealthCheck)

	// a nil *redis.Client must not become a non-nil interface
	var (
		locker   registration.AdmissionLocker
		throttle []gin.HandlerFunc
	)
	if d.Redis != nil {
		locker = d.Redis
		throttle = append(throttle, middleware.RateLimit(d.Redis, d.Config.RateLimitRequests, d.Config.RateLimitWindow, d.Log))
	}

	protect := middleware.NewAuthenticator(d.DB, d.Config).Protect()
	registrations := registration.NewService(d.DB, locker, d.Publisher, d.Log)

	api := r.Group("/api")
	user.NewService(d.DB, d.Config, d.Log).SetupRoutes(api, protect, throttle...)
	event.NewService(d.DB, registrations, d.Log).SetupRoutes(api, protect)
	registrations.SetupRoutes(api, protect, throttle...)
	paymentsvc.NewService(d.DB, d.Processor, d.Publisher, d.Log).SetupRoutes(api, protect)
	category.NewService(d.DB).SetupRoutes(api, protect)
	menu.NewService(d.DB).SetupRoutes(api, protect)
	s.Reconciler.SetupRoutes(api, protect)

	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.APIPort,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("port", s.config.APIPort).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "eventreg-api",
	})
}
