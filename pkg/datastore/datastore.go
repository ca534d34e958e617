// Package datastore reads the PostgreSQL database backing a composed server.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const qualityGatesTable = "quality_gates"

// Datastore runs read-only queries against the server schema.
type Datastore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open connects to dsn with the pgx driver.
func Open(ctx context.Context, dsn string) (*Datastore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach datastore: %w", err)
	}
	return New(db), nil
}

func New(db *sql.DB) *Datastore {
	return &Datastore{db: db, logger: zap.S().Named("datastore")}
}

// CountQualityGates returns how many quality gates are stored under name.
func (d *Datastore) CountQualityGates(ctx context.Context, name string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From(qualityGatesTable).
		Where(sq.Eq{"name": name}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	d.logger.Debugw("query_row", "query", query, "args", args)
	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count quality gates %q: %w", name, err)
	}
	return count, nil
}

func (d *Datastore) Close() error {
	return d.db.Close()
}
