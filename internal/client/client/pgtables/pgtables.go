// Package pgtables implements client.RemoteTable directly on PostgreSQL for
// self-hosted backends. The schema is managed by embedded goose migrations.
package pgtables

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/puffpass/internal/client/client"
	"github.com/dmitrijs2005/puffpass/internal/client/migrations"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/dmitrijs2005/puffpass/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Tables is a RemoteTable backed by a database handle.
type Tables struct {
	db dbx.DBTX
}

var _ client.RemoteTable = (*Tables)(nil)

func New(db dbx.DBTX) *Tables {
	return &Tables{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded PostgreSQL migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// Open connects with the pgx driver, verifies the connection and migrates.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapError("postgres.ping", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// mapError classifies driver errors. Server-side errors carry the
// PostgreSQL message so it can be shown to the user.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &common.Error{Op: op, Kind: common.KindNotFound, Message: "not found", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := common.KindRemoteRejected
		switch {
		case pgErr.Code == "57014": // query_canceled, raised by statement_timeout
			kind = common.KindTransportTimeout
		case strings.HasPrefix(pgErr.Code, "08"): // connection exception
			kind = common.KindTransportUnreachable
		}
		return &common.Error{Op: op, Kind: kind, Message: pgErr.Message, Err: err}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &common.Error{Op: op, Kind: common.KindTransportUnreachable, Err: err}
	}
	return common.Classify(op, err)
}
