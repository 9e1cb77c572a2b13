// Package bootstrap wires configuration, storage, events and services into
// a ready-to-use runtime.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viktor/internal/config"
	"viktor/internal/database"
	"viktor/internal/events"
	"viktor/internal/observability"
	"viktor/internal/repository"
	"viktor/internal/service"
	"viktor/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds every long-lived component built from one Config.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Store  *store.Store
	Events *events.Publisher

	PostRepo repository.PostRepository

	Users *service.UserService
	Posts *service.PostService
	Chat  *service.ChatService
	Query *service.QueryService

	shutdownTracing func(context.Context) error
}

// InitTracing starts the tracer provider described by cfg.
func InitTracing(cfg *config.Config) (func(context.Context) error, error) {
	return observability.InitTracing(observability.TracingConfig{
		ServiceName:    "viktor",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
}

// InitRuntime connects to the database, ensures the schema, connects Redis
// when events are enabled (a nil client on failure) and builds the services.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	observability.InitLogging(cfg.Env, cfg.LogLevel, cfg.LogFormat)

	shutdown, err := InitTracing(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = database.Close(db)
		_ = shutdown(ctx)
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.EventsEnabled {
		rdb = events.Connect(ctx, cfg.RedisURL)
	}

	rt := &Runtime{
		Config:          cfg,
		DB:              db,
		Redis:           rdb,
		Events:          events.NewPublisher(rdb),
		shutdownTracing: shutdown,
	}
	rt.Store = store.New(db, store.WithRetryPolicy(RetryPolicy(cfg)))
	rt.wire()
	return rt, nil
}

// RetryPolicy derives the contention retry policy from cfg.
func RetryPolicy(cfg *config.Config) store.RetryPolicy {
	p := store.DefaultRetryPolicy()
	p.MaxRetries = cfg.TxMaxRetries
	if base := cfg.RetryBase(); base > 0 {
		p.BaseDelay = base
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 50 * p.BaseDelay
	}
	return p
}

func (r *Runtime) wire() {
	userRepo := repository.NewUserRepository(r.Store)
	r.PostRepo = repository.NewPostRepository(r.Store)

	r.Users = service.NewUserService(userRepo)
	r.Posts = service.NewPostService(r.PostRepo, repository.NewCommentRepository(r.Store), r.Events, r.Users.IsAdmin)
	r.Chat = service.NewChatService(repository.NewChatRepository(r.Store), userRepo, r.Events)
	r.Query = service.NewQueryService(repository.NewAggregateRepository(r.Store), userRepo)
}

// Close releases the database, Redis and tracer.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	if r.DB != nil {
		errs = append(errs, database.Close(r.DB))
	}
	if r.shutdownTracing != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		errs = append(errs, r.shutdownTracing(shutdownCtx))
	}
	return errors.Join(errs...)
}
