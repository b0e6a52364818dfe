package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/upb/todo-app/authorizer"
	"github.com/upb/todo-app/config"
	"github.com/upb/todo-app/middleware"
	"github.com/upb/todo-app/repositories"
	"github.com/upb/todo-app/repositories/postgres"
	"github.com/upb/todo-app/services"
	"github.com/upb/todo-app/services/todos"
	"github.com/upb/todo-app/storage"
	s3storage "github.com/upb/todo-app/storage/s3"
	"github.com/upb/todo-app/verifier"
	"github.com/upb/todo-app/verifier/rediscache"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Todos     repositories.TodoRepository
	TxManager repositories.TransactionManager

	// Auth
	Verifier       middleware.TokenVerifier
	KeyCachePool   *redis.Pool // nil unless a shared key cache is configured
	Authorizer     *authorizer.Authorizer
	AuthMiddleware *middleware.AuthMiddleware

	// Attachments
	Attachments storage.AttachmentStorage

	// Services
	TodoService *todos.TodoService
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize PostgreSQL
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize token verification
	if err := deps.initAuth(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	// Initialize attachment storage
	if err := deps.initStorage(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps.initServices()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if cfg.Database.InitSchema {
		if err := d.DB.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Todos = repos.Todos
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initAuth builds the token verifier, its optional shared key cache, the
// gateway authorizer and the auth middleware
func (d *Dependencies) initAuth(ctx context.Context, cfg *config.Config) error {
	if cfg.Auth.JWKSURL == "" {
		d.Logger.Warn("AUTH_JWKS_URL not configured, all tokens will be rejected")
		d.Verifier = rejectAllVerifier{}
	} else {
		opts := []verifier.Option{verifier.WithLogger(d.Logger.Named("verifier"))}

		if cfg.Redis.Addr != "" && cfg.Auth.KeyCacheTTL > 0 {
			d.KeyCachePool = rediscache.NewPool(cfg.Redis.Addr)
			if err := pingRedis(ctx, d.KeyCachePool); err != nil {
				// Cache failures only cost a key set fetch
				d.Logger.Warn("signing key cache unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			opts = append(opts, verifier.WithKeyCache(rediscache.New(d.KeyCachePool, cfg.Redis.KeyPrefix)))
			d.Logger.Info("using shared signing key cache", zap.String("addr", cfg.Redis.Addr))
		}

		v, err := verifier.New(verifier.Config{
			JWKSURL:     cfg.Auth.JWKSURL,
			Issuer:      cfg.Auth.Issuer,
			Audience:    cfg.Auth.Audience,
			CacheTTL:    cfg.Auth.KeyCacheTTL,
			HTTPTimeout: cfg.Auth.HTTPTimeout,
		}, opts...)
		if err != nil {
			return fmt.Errorf("failed to create verifier: %w", err)
		}
		d.Verifier = v
	}

	d.Authorizer = authorizer.New(d.Verifier, d.Logger.Named("authorizer"))
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, d.Logger)
	d.Logger.Info("auth initialized", zap.Duration("key_cache_ttl", cfg.Auth.KeyCacheTTL))
	return nil
}

// initStorage builds the S3 attachment store
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage.Bucket == "" {
		d.Logger.Warn("ATTACHMENTS_S3_BUCKET not configured, attachment uploads disabled")
		d.Attachments = unavailableStorage{}
		return nil
	}

	store, err := s3storage.New(ctx, s3storage.Config{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		SessionToken:    cfg.Storage.SessionToken,
		URLExpiration:   cfg.Storage.URLExpiration,
	}, d.Logger.Named("storage"))
	if err != nil {
		return err
	}

	d.Attachments = store
	return nil
}

func (d *Dependencies) initServices() {
	d.TodoService = todos.NewTodoService(d.Todos, d.TxManager, d.Attachments, d.Logger.Named("todos"))
}

// PingKeyCache reports whether the shared key cache answers. It is nil-safe
// so it can be registered as a readiness check unconditionally.
func (d *Dependencies) PingKeyCache(ctx context.Context) error {
	if d.KeyCachePool == nil {
		return nil
	}
	return pingRedis(ctx, d.KeyCachePool)
}

func pingRedis(ctx context.Context, pool *redis.Pool) error {
	conn, err := pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "PING")
	return err
}

// rejectAllVerifier rejects all tokens (used when no key set is configured)
type rejectAllVerifier struct{}

func (rejectAllVerifier) Authorize(context.Context, string) (*verifier.Claims, error) {
	return nil, fmt.Errorf("%w: authentication not configured", verifier.ErrKeySetFetch)
}

// unavailableStorage fails uploads when no bucket is configured
type unavailableStorage struct{}

func (unavailableStorage) GetUploadURL(context.Context, string) (string, error) {
	return "", services.ErrStorageUnavailable
}

func (unavailableStorage) GetDownloadURL(string) string { return "" }

func (unavailableStorage) DeleteAttachment(context.Context, string) error {
	return services.ErrStorageUnavailable
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.KeyCachePool != nil {
		if err := d.KeyCachePool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close key cache pool: %w", err))
		}
		d.KeyCachePool = nil
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
