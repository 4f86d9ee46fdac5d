package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pairbook/core/internal/adapters/docstore"
	httpHandlers "github.com/pairbook/core/internal/adapters/http"
	"github.com/pairbook/core/internal/adapters/repository"
	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/infrastructure/config"
	"github.com/pairbook/core/internal/infrastructure/database"
	"github.com/pairbook/core/internal/infrastructure/logger"
	"github.com/pairbook/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
	db     *database.DB
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance. db is nil when the memory document
// store driver is configured.
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize the document store
	store, err := buildStore(cfg, db)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	pageRepo := repository.NewTaskPageRepository(store)
	archiveRepo := repository.NewArchiveRepository(store)
	pairingRepo := repository.NewPairingRepository(store)
	eventRepo := repository.NewEventRepository(store)
	postRepo := repository.NewPostRepository(store)

	// Initialize services
	ledgerService := services.NewLedgerService(pageRepo, archiveRepo, appLogger)
	pairingService := services.NewPairingService(pairingRepo, appLogger)
	tokenService := services.NewTokenService(cfg.Auth)
	eventService := services.NewEventService(eventRepo, ledgerService, appLogger)
	postService := services.NewPostService(postRepo, appLogger)

	// Initialize handlers
	pairingHandler := httpHandlers.NewPairingHandler(pairingService, tokenService, appLogger)
	ledgerHandler := httpHandlers.NewLedgerHandler(ledgerService, appLogger)
	eventHandler := httpHandlers.NewEventHandler(eventService, appLogger)
	postHandler := httpHandlers.NewPostHandler(postService, appLogger)

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		db:     db,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(pairingHandler, ledgerHandler, eventHandler, postHandler, tokenService)

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	return server, nil
}

// buildStore selects the document store implementation from config
func buildStore(cfg *config.Config, db *database.DB) (ports.DocStore, error) {
	switch cfg.Database.Driver {
	case "memory":
		return docstore.NewMemory(), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres driver requires a database connection")
		}
		return docstore.NewPostgres(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown document store driver: %s", cfg.Database.Driver)
	}
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"user_agent", values.UserAgent,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.logger.Errorw("HTTP request failed", fields...)
			} else {
				s.logger.Infow("HTTP request", fields...)
			}

			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(s.config.Security.RateLimitRequests), Burst: s.config.Security.RateLimitRequests, ExpiresIn: s.config.Security.RateLimitWindow},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			id := ctx.RealIP()
			return id, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, map[string]string{"message": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{"message": "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Timeout middleware. Snapshot streams stay open until the client
	// disconnects, so they are excluded.
	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 30 * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/watch")
		},
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(pairingHandler *httpHandlers.PairingHandler, ledgerHandler *httpHandlers.LedgerHandler, eventHandler *httpHandlers.EventHandler, postHandler *httpHandlers.PostHandler, tokenService *services.TokenService) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// API documentation
	s.echo.Static("/docs", "docs")

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Pairing lifecycle (public)
	pairingGroup := v1.Group("/pairings")
	pairingGroup.POST("", pairingHandler.CreatePairing)
	pairingGroup.POST("/join", pairingHandler.JoinPairing)
	pairingGroup.GET("/me", pairingHandler.GetPairing, s.pairingTokenMiddleware(tokenService))

	// Daily task ledger routes (pairing-scoped)
	ledgerGroup := v1.Group("/ledger", s.pairingTokenMiddleware(tokenService))
	ledgerGroup.GET("/pages/:date", ledgerHandler.GetPage)
	ledgerGroup.GET("/pages/:date/watch", ledgerHandler.WatchPage)
	ledgerGroup.POST("/pages/:date/tasks", ledgerHandler.AddTask)
	ledgerGroup.POST("/pages/:date/tasks/toggle", ledgerHandler.ToggleTask)
	ledgerGroup.POST("/pages/:date/tear-off", ledgerHandler.TearOffPage)
	ledgerGroup.GET("/archive", ledgerHandler.ListArchive)
	ledgerGroup.POST("/archive/restore", ledgerHandler.RestoreTask)

	// Calendar event routes (pairing-scoped)
	eventGroup := v1.Group("/events", s.pairingTokenMiddleware(tokenService))
	eventGroup.GET("", eventHandler.ListEvents)
	eventGroup.POST("", eventHandler.CreateEvent)
	eventGroup.PUT("/:id", eventHandler.UpdateEvent)
	eventGroup.DELETE("/:id", eventHandler.DeleteEvent)
	eventGroup.POST("/:id/add-to-tasks", eventHandler.AddEventToTasks)

	// Memory wall routes (pairing-scoped)
	postGroup := v1.Group("/posts", s.pairingTokenMiddleware(tokenService))
	postGroup.GET("", postHandler.ListPosts)
	postGroup.POST("", postHandler.CreatePost)
	postGroup.POST("/:id/like", postHandler.ToggleLike)
	postGroup.DELETE("/:id", postHandler.DeletePost)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start)
			status := c.Response().Status

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(duration.Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// pairingTokenMiddleware validates pairing tokens and scopes the request
// to the caller's pairing
func (s *Server) pairingTokenMiddleware(tokenService *services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := tokenService.Validate(parts[1])
			if err != nil {
				s.logger.Warn("Invalid pairing token", "error", err, "ip", c.RealIP())
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(httpHandlers.ContextUserID, claims.UserID)
			c.Set(httpHandlers.ContextPairingID, claims.PairingID)

			return next(c)
		}
	}
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	if s.db != nil {
		if err := s.db.HealthCheck(); err != nil {
			status = "error"
			checks["database"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		} else {
			checks["database"] = map[string]interface{}{
				"status": "ok",
				"stats":  s.db.GetConnectionInfo(),
			}
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"driver": "memory",
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  "1.21",
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": "database_not_ready",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Info("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler handles HTTP errors
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else if e, ok := err.(validator.ValidationErrors); ok {
			code = http.StatusBadRequest
			msg = map[string]string{"message": "validation failed", "details": e.Error()}
		} else {
			msg = map[string]string{"message": http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.Error("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == echo.HEAD {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Error("Error sending response", "error", err)
			}
		}
	}
}
