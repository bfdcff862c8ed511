package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/ports"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool configures pgxpool from dsn, verifies connectivity, and returns the pool.
func NewPool(ctx context.Context, dsn string, logger *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()

	// parse pgxpool config
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}

	// good hygiene defaults
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute

	// keep sessions on UTC
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `SET TIME ZONE 'UTC'`)
		return err
	}

	// create pool
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	// ping with timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	logger.Info(ctx, "db_connected", "Connected to PostgreSQL database", map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS produtos (
	id         BIGSERIAL PRIMARY KEY,
	nome       TEXT NOT NULL,
	preco      NUMERIC(10,2) NOT NULL CHECK (preco >= 0),
	estoque    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pedidos (
	id         BIGSERIAL PRIMARY KEY,
	status     TEXT NOT NULL CHECK (status IN ('PENDENTE','PROCESSANDO','CRIADO','CANCELADO')),
	total      NUMERIC(12,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS itens_pedido (
	id             BIGSERIAL PRIMARY KEY,
	pedido_id      BIGINT NOT NULL REFERENCES pedidos(id) ON DELETE CASCADE,
	produto_id     BIGINT NOT NULL REFERENCES produtos(id),
	quantidade     INTEGER NOT NULL CHECK (quantidade > 0),
	preco_unitario NUMERIC(10,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_itens_pedido_pedido ON itens_pedido(pedido_id);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// no arguments: pgx uses the simple protocol, so the multi-statement script runs as one batch
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// storeErr maps pgx errors onto the pipeline error kinds.
func storeErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ports.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return orders.StoreFailure(fmt.Sprintf("%s [sqlstate %s]", op, pgErr.Code), err)
	}
	return orders.StoreFailure(op, err)
}
