package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/repairdesk/repairdesk-backend/pkg/config"
	"github.com/repairdesk/repairdesk-backend/pkg/logger"
)

const defaultSQLitePath = "repairdesk.db"

// Client owns the shared GORM handle for the api and worker processes.
type Client struct {
	conn *gorm.DB
}

// Pinger is the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens Postgres, or a sqlite file when the dev flag is set.
func New(ctx context.Context, cfg config.DBConfig, flags config.FeatureFlagsConfig, logg *logger.Logger) (*Client, error) {
	dialector, err := openDialector(cfg, flags)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	handle, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	tunePool(handle, cfg, flags.UseSQLite)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", dialector.Name()), "database connection established")
	}
	return &Client{conn: conn}, nil
}

// Wrap adapts an already open connection; tests use it with in-memory sqlite.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func openDialector(cfg config.DBConfig, flags config.FeatureFlagsConfig) (gorm.Dialector, error) {
	if flags.UseSQLite {
		path := flags.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		return sqlite.Open(path + "?_foreign_keys=on"), nil
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

func tunePool(handle *sql.DB, cfg config.DBConfig, single bool) {
	if single {
		// one writer at a time or sqlite answers SQLITE_BUSY
		handle.SetMaxOpenConns(1)
		return
	}
	// zero keeps database/sql defaults
	if n := cfg.MaxOpenConns; n > 0 {
		handle.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		handle.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		handle.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		handle.SetConnMaxIdleTime(d)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQLDB is the raw handle goose runs against.
func (c *Client) SQLDB() (*sql.DB, error) {
	return c.conn.DB()
}

// Dialect names the goose dialect of the open driver.
func (c *Client) Dialect() string {
	if c.conn.Dialector.Name() == "sqlite" {
		return "sqlite3"
	}
	return "postgres"
}

func (c *Client) Ping(ctx context.Context) error {
	handle, err := c.conn.DB()
	if err != nil {
		return err
	}
	return handle.PingContext(ctx)
}

func (c *Client) Close() error {
	handle, err := c.conn.DB()
	if err != nil {
		return err
	}
	return handle.Close()
}

// WithTx runs fn in one transaction. GORM rolls back when fn errors or panics.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
