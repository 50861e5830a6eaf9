// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ledgerdesk/internal/config"
	"ledgerdesk/internal/db"
	"ledgerdesk/internal/domain/auth"
	authHandler "ledgerdesk/internal/handlers/auth"
	sessionHandler "ledgerdesk/internal/handlers/session"
	wsHandler "ledgerdesk/internal/handlers/websocket"
	"ledgerdesk/internal/middleware"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/session"
	"ledgerdesk/internal/pkg/validate"
	"ledgerdesk/internal/repository/memory"
	"ledgerdesk/internal/repository/postgres"
	authUsecase "ledgerdesk/internal/service/auth"
	"ledgerdesk/internal/service/devices"
	"ledgerdesk/internal/service/email"
	"ledgerdesk/internal/websocket"
	wsHandlers "ledgerdesk/internal/websocket/handler"
	"ledgerdesk/migrations"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpSrv     *http.Server
	pool        *pgxpool.Pool
	redisClient *redis.Client
	hub         *websocket.Hub
	stopHub     context.CancelFunc

	authService *authUsecase.AuthService
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Init connects the backing stores and wires the HTTP routes. Without
// DATABASE_URL the repositories are in memory; without Redis so is the session cache.
func (s *Server) Init(ctx context.Context) error {
	logger := s.logger

	// ----- Repositories -----
	var (
		users    auth.UserRepository
		sessions auth.SessionRepository
	)
	if s.cfg.DatabaseURL != "" {
		pool, err := db.ConnectPostgres(ctx, db.PostgresConfig{
			URL:      s.cfg.DatabaseURL,
			MaxConns: s.cfg.DBMaxConns,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.pool = pool
		if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		users = postgres.NewAuthRepository(pool)
		sessions = postgres.NewSessionRepository(postgres.NewDB(pool))
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		users = memory.NewUserRepository()
		sessions = memory.NewSessionRepository()
	}

	// ----- Session Store & Rate Limiter -----
	var (
		store   session.Store
		limiter session.Limiter
	)
	if s.cfg.UsesRedis() {
		client, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			return err
		}
		s.redisClient = client
		store = session.NewRedisStore(client)
		limiter = session.NewRedisRateLimiter(client)
		logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))
	} else {
		logger.Warn("using in-memory session store")
		store = session.NewMemoryStore()
		limiter = session.NewMemoryRateLimiter()
	}

	// ----- JWT Manager -----
	var (
		jwtManager *jwt.Manager
		err        error
	)
	if s.cfg.HasJWTKeys() {
		jwtManager, err = jwt.LoadAndBuild(s.cfg.JWT)
	} else {
		logger.Warn("JWT key paths not set, signing with an ephemeral key")
		jwtManager, err = jwt.Ephemeral(s.cfg.JWT)
	}
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Email -----
	var emailSender email.Sender
	if s.cfg.SMTPHost != "" {
		emailSender = email.NewEmailSender(
			s.cfg.SMTPHost,
			s.cfg.SMTPPort,
			s.cfg.SMTPUser,
			s.cfg.SMTPPass,
			s.cfg.SMTPFromName,
			s.cfg.SMTPSecure,
		)
	} else {
		emailSender = email.NewLogSender(logger)
	}

	sessionManager := session.NewManager(store, sessions, users, logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, sessionManager, logger)
	hub.RegisterHandler(wsHandlers.NewSessionHandler(sessions))
	hubCtx, cancel := context.WithCancel(context.Background())
	s.hub, s.stopHub = hub, cancel
	go hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		users,
		sessions,
		jwtManager,
		sessionManager,
		limiter,
		emailSender,
		hub,
		s.cfg.BaseURL,
		logger,
	)
	s.authService = authService
	deviceService := devices.NewService(sessions, sessionManager, hub, logger)

	if err := s.seedManager(ctx); err != nil {
		logger.Error("failed to seed manager", zap.Error(err))
	}

	// ----- Middlewares -----
	if err := validate.RegisterGin(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(jwtManager.Verifier, sessionManager, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		cors.New(CORSConfig(s.cfg.CORSOrigins)),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, logger),
		SessionHandler: sessionHandler.NewSessionHandler(deviceService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(hub, s.cfg.CORSOrigins, logger),
		AuthMiddleware: authMiddleware,
	})
	return nil
}

// Handler exposes the routed engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}
	s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP then closes the hub and the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// seedManager creates the configured manager account if it doesn't exist.
func (s *Server) seedManager(ctx context.Context) error {
	if s.cfg.SeedManagerEmail == "" || s.cfg.SeedManagerPassword == "" {
		return nil
	}
	if err := validate.Password(s.cfg.SeedManagerPassword); err != nil {
		return fmt.Errorf("seed manager password: %w", err)
	}
	return s.authService.EnsureManagerExists(ctx, s.cfg.SeedManagerEmail, s.cfg.SeedManagerPassword, s.cfg.SeedManagerName)
}
