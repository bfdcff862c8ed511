// Package storage picks the store adapter from the database URL and brings it
// to a usable state: connected, migrated and seeded.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/products"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/postgres"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/sqlite"
	"github.com/shopspring/decimal"
)

const (
	DefaultAttempts = 10
	DefaultDelay    = 2 * time.Second
)

// Store is an opened backend exposed through the ports.
type Store struct {
	Backend  string
	UoW      ports.UnitOfWork
	Products ports.ProductRepository
	Orders   ports.OrderRepository
	close    func()
}

// Close releases the underlying connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Options tunes connection retries. Zero values use the defaults.
type Options struct {
	Attempts int
	Delay    time.Duration
}

// Open connects to databaseURL (sqlite:// or postgres://), retrying while the
// server comes up, then applies the schema and seeds an empty catalog.
func Open(ctx context.Context, databaseURL string, log *logger.Logger, opts Options) (*Store, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}

	var store *Store
	err := retry(ctx, log, opts, func() error {
		s, err := connect(ctx, databaseURL, log)
		if err != nil {
			return err
		}
		store = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := Seed(ctx, store.UoW, store.Products); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	log.Info(ctx, "store_ready", "Store migrated and seeded", map[string]any{"backend": store.Backend})
	return store, nil
}

// permanentError marks a connect failure that no retry can fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func connect(ctx context.Context, databaseURL string, log *logger.Logger) (*Store, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("parse database url: %w", err)}
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite":
		path := strings.TrimPrefix(databaseURL, u.Scheme+"://")
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info(ctx, "db_connected", "Opened SQLite database", map[string]any{"path": path})
		return &Store{
			Backend:  "sqlite",
			UoW:      sqlite.NewUnitOfWork(db),
			Products: sqlite.NewProductsRepo(),
			Orders:   sqlite.NewOrdersRepo(),
			close:    func() { _ = db.Close() },
		}, nil

	case "postgres", "postgresql":
		pool, err := postgres.NewPool(ctx, databaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{
			Backend:  "postgres",
			UoW:      postgres.NewUnitOfWork(pool),
			Products: postgres.NewProductsRepo(),
			Orders:   postgres.NewOrdersRepo(),
			close:    pool.Close,
		}, nil

	default:
		return nil, &permanentError{fmt.Errorf("unsupported database scheme %q", u.Scheme)}
	}
}

func retry(ctx context.Context, log *logger.Logger, opts Options, fn func() error) error {
	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		log.Error(ctx, "db_connect_retry", fmt.Sprintf("store not ready (attempt %d/%d)", attempt, opts.Attempts), err)
		if attempt == opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Delay):
		}
	}
	return fmt.Errorf("store unavailable after %d attempts: %w", opts.Attempts, err)
}

// DefaultCatalog is inserted when the products table is empty.
func DefaultCatalog() []products.Product {
	return []products.Product{
		{Name: "Furadeira 500W", Price: decimal.RequireFromString("249.90"), Stock: 25},
		{Name: "Parafusadeira 12V", Price: decimal.RequireFromString("199.90"), Stock: 40},
		{Name: "Serra Circular 1500W", Price: decimal.RequireFromString("549.90"), Stock: 10},
	}
}

// Seed inserts DefaultCatalog when there are no products yet.
func Seed(ctx context.Context, uow ports.UnitOfWork, repo ports.ProductRepository) error {
	return uow.WithinTx(ctx, func(ctx context.Context) error {
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, p := range DefaultCatalog() {
			p := p
			if err := repo.Insert(ctx, &p); err != nil {
				return err
			}
		}
		return nil
	})
}
