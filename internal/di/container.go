// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"io"
	"sync"

	"devlense/internal/config"
	"devlense/internal/database"
	"devlense/internal/observability"
	"devlense/internal/services"
	serviceinterfaces "devlense/internal/services/interfaces"
	"devlense/internal/storage"
	contextutils "devlense/internal/utils"

	"github.com/redis/go-redis/v9"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetIdentityService() (services.IdentityServiceInterface, error)
	GetSubmissionService() (*services.SubmissionService, error)
	GetQnAService() (services.QnAServiceInterface, error)
	GetQnAView() (*services.QnAListView, error)
	GetTableService() (*services.TableService, error)
	GetLimiter() (services.SubmissionLimiter, error)
	GetObjectStore() storage.ObjectStore
	StorageRoot() string
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	redis         redis.UniversalClient
	store         storage.ObjectStore
	services      map[string]interface{}
	lifecycle     serviceinterfaces.Group
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	if sc.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     sc.cfg.Redis.Addr,
			Password: sc.cfg.Redis.Password,
			DB:       sc.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = sc.cleanup(ctx)
			return contextutils.WrapErrorf(err, "failed to reach redis at %s", sc.cfg.Redis.Addr)
		}
		sc.redis = client
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return client.Close()
		})
	}

	store, err := storage.NewObjectStore(ctx, &sc.cfg.Storage, sc.logger)
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize object store")
	}
	sc.store = store
	if closer, ok := store.(io.Closer); ok {
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return closer.Close()
		})
	}

	sc.initializeServices(ctx)

	if err := sc.lifecycle.Startup(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to startup services")
	}
	sc.logger.Info(ctx, "Services started", map[string]interface{}{"components": sc.lifecycle.Names()})

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetIdentityService returns the identity service
func (sc *ServiceContainer) GetIdentityService() (services.IdentityServiceInterface, error) {
	return GetServiceAs[services.IdentityServiceInterface](sc, "identity")
}

// GetSubmissionService returns the submission service
func (sc *ServiceContainer) GetSubmissionService() (*services.SubmissionService, error) {
	return GetServiceAs[*services.SubmissionService](sc, "submission")
}

// GetQnAService returns the question table service
func (sc *ServiceContainer) GetQnAService() (services.QnAServiceInterface, error) {
	return GetServiceAs[services.QnAServiceInterface](sc, "qna")
}

// GetQnAView returns the per-session question list cache
func (sc *ServiceContainer) GetQnAView() (*services.QnAListView, error) {
	return GetServiceAs[*services.QnAListView](sc, "qna_view")
}

// GetTableService returns the read-only table service
func (sc *ServiceContainer) GetTableService() (*services.TableService, error) {
	return GetServiceAs[*services.TableService](sc, "table")
}

// GetLimiter returns the shared rate limiter
func (sc *ServiceContainer) GetLimiter() (services.SubmissionLimiter, error) {
	return GetServiceAs[services.SubmissionLimiter](sc, "limiter")
}

// GetObjectStore returns the attachment store
func (sc *ServiceContainer) GetObjectStore() storage.ObjectStore {
	return sc.store
}

// StorageRoot is the directory served for attachments when they are kept on
// local disk, or empty for remote buckets.
func (sc *ServiceContainer) StorageRoot() string {
	if fileStore, ok := sc.store.(*storage.FileStore); ok {
		return fileStore.Root()
	}
	return ""
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup stops lifecycle components, then releases resources in reverse order
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	if err := sc.lifecycle.Shutdown(ctx); err != nil {
		sc.logger.Error(ctx, "Failed to shutdown services", err, nil)
		errors = append(errors, err)
	}

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) {
	userService := services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["user"] = userService

	// Session state: tokens, the store they are checked against and the hub
	// that announces sign-in and sign-out.
	tokens := services.NewTokenManager(sc.cfg.Server.SessionSecret, sc.cfg.Sessions.Issuer, sc.cfg.Sessions.Audience, sc.cfg.Sessions.TTL)
	var sessionStore services.SessionStore
	if sc.cfg.Sessions.Store == "redis" && sc.redis != nil {
		sessionStore = services.NewRedisSessionStore(sc.redis)
	} else {
		memoryStore := services.NewMemorySessionStore()
		sc.lifecycle.Add("session_janitor", services.NewJanitor("session_janitor", config.JanitorInterval, memoryStore.PurgeExpired, sc.logger))
		sessionStore = memoryStore
	}

	hub := services.NewSessionHub(sc.logger)
	if sc.redis != nil {
		relay := services.NewRedisAuthEventRelay(sc.redis, hub, sc.logger)
		hub.SetRelay(relay)
		sc.lifecycle.Add("auth_event_relay", relay)
	}
	sc.services["session_hub"] = hub

	identityService := services.NewIdentityService(userService, tokens, sessionStore, hub, sc.logger)
	sc.services["identity"] = identityService

	bugReportService := services.NewBugReportService(sc.db, sc.logger)
	sc.services["bug_report"] = bugReportService

	qnaService := services.NewQnAService(sc.db, sc.logger)
	sc.services["qna"] = qnaService

	qnaView := services.NewQnAListView(qnaService, sc.logger)
	qnaView.SetRetention(sc.cfg.Sessions.TTL)
	sc.lifecycle.Add("qna_view_janitor", services.NewJanitor("qna_view_janitor", config.JanitorInterval, qnaView.Sweep, sc.logger))
	sc.services["qna_view"] = qnaView
	stopWatching := qnaView.Watch(context.WithoutCancel(ctx), hub)
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		stopWatching()
		return nil
	})

	var scripter redis.Scripter
	if sc.redis != nil {
		scripter = sc.redis
	}
	limiter := services.NewSubmissionLimiter(&sc.cfg.RateLimit, scripter, sc.logger)
	if memoryLimiter, ok := limiter.(*services.MemoryLimiter); ok {
		sc.lifecycle.Add("limiter_janitor", services.NewJanitor("limiter_janitor", config.JanitorInterval, memoryLimiter.Sweep, sc.logger))
	}
	sc.services["limiter"] = limiter

	emailService := services.CreateEmailService(sc.cfg, sc.logger)
	sc.services["email"] = emailService
	notifier := services.NewSubmissionNotifier(emailService, sc.cfg.Server.NotifyAddress, sc.logger)

	submissionService := services.NewSubmissionService(sc.cfg, services.SubmissionDeps{
		Reports:  bugReportService,
		QnA:      qnaService,
		View:     qnaView,
		Store:    sc.store,
		Limiter:  limiter,
		Notifier: notifier,
	}, sc.logger)
	sc.services["submission"] = submissionService

	sc.services["table"] = services.NewTableService(sc.db, sc.logger)
}

// EnsureAdminUser creates the admin user if it doesn't exist
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	return userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminPassword)
}
