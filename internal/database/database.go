// Package database builds the pgx connection pool and runs schema
// migrations. Query logging and New Relic tracing are attached here so
// the rest of the service only sees a ready pool.
package database

import (
	"context"
	"fmt"

	pgxzerolog "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/logging"
)

// NewPool builds the connection pool. When DATABASE_ECHO is set, every
// query is logged through the service logger; when a New Relic app is
// provided, queries are traced as datastore segments.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger, nrApp *newrelic.Application) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.ConnMaxLifetime

	var tracers []pgx.QueryTracer
	if cfg.Echo {
		tracers = append(tracers, &tracelog.TraceLog{
			Logger:   pgxzerolog.NewLogger(log.Named("database")),
			LogLevel: tracelog.LogLevelDebug,
		})
	}
	if nrApp != nil {
		tracers = append(tracers, nrpgx5.NewTracer())
	}
	switch len(tracers) {
	case 0:
	case 1:
		pc.ConnConfig.Tracer = tracers[0]
	default:
		pc.ConnConfig.Tracer = multitracer.New(tracers...)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
