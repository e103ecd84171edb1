//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package postgres opens database/sql connections through the pgx driver and
// exposes them behind a small Client interface that tests can replace.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// ErrEmptyConnString is returned when no connection string is configured.
var ErrEmptyConnString = errors.New("postgres: connection string is empty")

type clientBuilder func(ctx context.Context, opts ...ClientBuilderOpt) (Client, error)

var globalBuilder clientBuilder = defaultClientBuilder

// SetClientBuilder replaces the builder used by NewClient.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder returns the builder used by NewClient.
func GetClientBuilder() clientBuilder {
	return globalBuilder
}

// NewClient builds a Client with the current builder.
func NewClient(ctx context.Context, opts ...ClientBuilderOpt) (Client, error) {
	return globalBuilder(ctx, opts...)
}

// ClientBuilderOpts holds connection settings.
type ClientBuilderOpts struct {
	// ConnString is a postgres URL or keyword/value DSN.
	ConnString string
	// MaxOpenConns bounds the pool. Zero leaves the driver default.
	MaxOpenConns int
	// ConnMaxIdleTime closes idle connections after the duration.
	ConnMaxIdleTime time.Duration
}

// ClientBuilderOpt configures ClientBuilderOpts.
type ClientBuilderOpt func(*ClientBuilderOpts)

// WithClientConnString sets the connection string.
func WithClientConnString(connString string) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.ConnString = connString }
}

// WithMaxOpenConns bounds the number of open connections.
func WithMaxOpenConns(n int) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.MaxOpenConns = n }
}

// WithConnMaxIdleTime sets the idle timeout of pooled connections.
func WithConnMaxIdleTime(d time.Duration) ClientBuilderOpt {
	return func(o *ClientBuilderOpts) { o.ConnMaxIdleTime = d }
}

func defaultClientBuilder(ctx context.Context, opts ...ClientBuilderOpt) (Client, error) {
	o := &ClientBuilderOpts{}
	for _, opt := range opts {
		opt(o)
	}
	if o.ConnString == "" {
		return nil, ErrEmptyConnString
	}
	db, err := sql.Open("pgx", o.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open connection: %w", err)
	}
	if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping database: %w", err)
	}
	return FromDB(db), nil
}

// Client is the subset of database/sql used by the vector index.
type Client interface {
	// ExecContext runs a statement that returns no rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Query runs a statement and hands the rows to fn. Rows are closed when
	// fn returns.
	Query(ctx context.Context, fn HandlerFunc, query string, args ...any) error

	// Transaction runs fn in a transaction, committing when fn returns nil.
	Transaction(ctx context.Context, fn TxFunc) error

	// Close releases the pool.
	Close() error
}

// HandlerFunc consumes query rows.
type HandlerFunc func(*sql.Rows) error

// TxFunc runs inside a transaction.
type TxFunc func(*sql.Tx) error

// FromDB wraps an open *sql.DB.
func FromDB(db *sql.DB) Client {
	return &sqlClient{db: db}
}

type sqlClient struct {
	db *sql.DB
}

func (c *sqlClient) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *sqlClient) Query(ctx context.Context, fn HandlerFunc, query string, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	if err := fn(rows); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration: %w", err)
	}
	return nil
}

func (c *sqlClient) Transaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (c *sqlClient) Close() error {
	return c.db.Close()
}
