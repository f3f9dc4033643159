// Package backend opens the configured price-history store and the optional
// Redis comparison cache for the daemon and the CLI.
package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/receiptradar/internal/cache"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
	"github.com/joseph-ayodele/receiptradar/internal/repository"
	"github.com/joseph-ayodele/receiptradar/internal/repository/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend bundles the repositories for one driver. Receipts and Corrections
// are nil on sqlite; Cache is nil without Redis.
type Backend struct {
	Driver      string
	History     pricing.HistoryStore
	Comparer    pricing.Comparer
	Cache       *cache.ComparisonCache
	Stores      repository.StoreRepository
	Users       repository.UserRepository
	Receipts    repository.ReceiptRepository
	Corrections repository.CorrectionRepository

	closers []func() error
	logger  *slog.Logger
}

type options struct {
	metrics *metrics.Metrics
	redis   redis.Cmdable
	migrate bool
}

type Option func(*options)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRedis uses an existing client instead of dialing RedisConfig.Addr.
func WithRedis(c redis.Cmdable) Option {
	return func(o *options) { o.redis = c }
}

// WithMigrate applies pending schema migrations on open.
func WithMigrate() Option {
	return func(o *options) { o.migrate = true }
}

// Open connects the backend named by cfg.Database.Driver.
func Open(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{Driver: cfg.Database.Driver, logger: logger}
	var err error
	switch cfg.Database.Driver {
	case DriverPostgres:
		err = b.openPostgres(ctx, cfg.Database, o.migrate)
	case DriverSQLite:
		err = b.openSQLite(ctx, cfg.Database)
	default:
		err = common.NewAppError(common.CodeConfig, "unknown database driver "+cfg.Database.Driver, common.ErrInvalidArgument)
	}
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	b.Comparer = b.History
	client := o.redis
	if client == nil && cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, rc.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pingCtx).Err(); err != nil {
			logger.Warn("backend.redis.unreachable", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
		client = rc
	}
	if client != nil {
		b.Cache = cache.NewComparisonCache(client, b.History, cfg.Redis.TTL, logger, o.metrics)
		b.Comparer = b.Cache
	}

	logger.Info("backend.open.ok", "driver", b.Driver, "cache", b.Cache != nil)
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, cfg common.DatabaseConfig, migrate bool) error {
	if migrate {
		mg, err := repository.NewMigrator(cfg.DSN, b.logger)
		if err != nil {
			return err
		}
		upErr := mg.Up()
		closeErr := mg.Close()
		if err := errors.Join(upErr, closeErr); err != nil {
			return err
		}
	}
	pool, err := repository.Open(ctx, repository.ConfigFrom(cfg), b.logger)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() error {
		repository.Close(pool, b.logger)
		return nil
	})
	b.History = repository.NewPriceHistoryRepository(pool, b.logger)
	b.Stores = repository.NewStoreRepository(pool, b.logger)
	b.Users = repository.NewUserRepository(pool, b.logger)
	b.Receipts = repository.NewReceiptRepository(pool, b.logger)
	b.Corrections = repository.NewCorrectionRepository(pool, b.logger)
	return nil
}

func (b *Backend) openSQLite(ctx context.Context, cfg common.DatabaseConfig) error {
	store, err := sqlite.Open(ctx, cfg.SQLitePath, b.logger)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, store.Close)
	b.History = store
	b.Stores = store
	b.Users = store
	return nil
}

// Ping checks the history store.
func (b *Backend) Ping(ctx context.Context) error {
	if b.History == nil {
		return common.Unavailable("backend not open", nil)
	}
	return b.History.Ping(ctx)
}

// Close releases connections in reverse open order.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
