// Package database opens the Postgres pool behind the download ledger.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/nikishkaa/docx-bot/internal/config"
)

// ApplicationName tags ledger sessions in pg_stat_activity.
const ApplicationName = "docx-bot-ledger"

// The ledger serializes its writes behind one mutex, so a handful of
// connections covers the increments plus the health check.
const (
	defaultMaxOpen  = 4
	defaultMaxIdle  = 2
	defaultLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

var ErrIncompleteConfig = errors.New("ledger database: host, port, user, and name are required")

var sqlOpen = sql.Open

// LedgerDSN renders the connection URL for the ledger database.
func LedgerDSN(c config.DatabaseConfig) (string, error) {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", ErrIncompleteConfig
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
		User:   url.User(c.User),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{"application_name": {ApplicationName}}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type poolLimits struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

func limitsFor(c config.DatabaseConfig) poolLimits {
	l := poolLimits{maxOpen: defaultMaxOpen, maxIdle: defaultMaxIdle, lifetime: defaultLifetime}
	if c.MaxOpenConns > 0 {
		l.maxOpen = c.MaxOpenConns
	}
	if c.MaxIdleConns > 0 {
		l.maxIdle = c.MaxIdleConns
	}
	if l.maxIdle > l.maxOpen {
		l.maxIdle = l.maxOpen
	}
	if c.ConnMaxLifetimeSec > 0 {
		l.lifetime = time.Duration(c.ConnMaxLifetimeSec) * time.Second
	}
	return l
}

func (l poolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(l.maxOpen)
	db.SetMaxIdleConns(l.maxIdle)
	db.SetConnMaxLifetime(l.lifetime)
}

// OpenLedgerDB opens a traced pgx pool sized for the download ledger and
// checks that the server answers. Spans carry the database name.
func OpenLedgerDB(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := LedgerDSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBNameKey.String(c.Name)),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("trace ledger driver: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	limitsFor(c).apply(db)

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping reports whether the ledger database answers within five seconds.
func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger db ping: %w", err)
	}
	return nil
}
