// Package postgres implements the record and vector search stores on PostgreSQL with pgvector.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/logger"
)

// Options configures Open.
type Options struct {
	URL        string
	MaxConns   int32
	Migrate    bool
	Dimensions int
}

// Store reads freelancers, profiles and jobs and persists embeddings.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open creates and verifies a connection pool with the vector type registered on every connection.
// With Migrate set, the bootstrap schema is applied first so the vector extension exists.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	log = logger.WithFields(log, zap.String(logger.FieldStore, "postgres"))

	if opts.Migrate {
		if err := migrate(ctx, opts.URL, opts.Dimensions); err != nil {
			return nil, err
		}
		log.Info("schema migrated")
	}

	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &Store{pool: pool, logger: log}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func migrate(ctx context.Context, url string, dimensions int) error {
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer conn.Close(ctx)

	for _, stmt := range schemaStatements(dimensions) {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
