package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"lodge/config"
	"lodge/shared/constant"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	driverName            = "postgres"
	maxIdleConnections    = 10
	maxOpenConnections    = 10
	connectionMaxLifetime = 30 * time.Minute
)

// Connection keeps the read replica and the primary apart; ledger transactions always use Write.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

// Target is one side of the replica pair.
type Target struct {
	Name     string
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

func (t Target) DSN() string {
	dsn := url.URL{
		Scheme:   driverName,
		User:     url.UserPassword(t.Username, t.Password),
		Host:     net.JoinHostPort(t.Host, t.Port),
		Path:     "/" + t.Database,
		RawQuery: url.Values{"sslmode": []string{t.SSLMode}}.Encode(),
	}

	return dsn.String()
}

// Targets resolves the read and write targets with the configured database prefix.
func Targets(cfg *config.Config) (read, write Target) {
	pg := cfg.DB.Postgres

	read = Target{
		Name:     "read",
		Host:     pg.Read.Host,
		Port:     pg.Read.Port,
		Username: pg.Read.Username,
		Password: pg.Read.Password,
		Database: pg.Prefix + pg.Read.Name,
		SSLMode:  pg.Read.SSLMode,
	}

	write = Target{
		Name:     "write",
		Host:     pg.Write.Host,
		Port:     pg.Write.Port,
		Username: pg.Write.Username,
		Password: pg.Write.Password,
		Database: pg.Prefix + pg.Write.Name,
		SSLMode:  pg.Write.SSLMode,
	}

	return read, write
}

func New(cfg *config.Config) *Connection {
	read, write := Targets(cfg)
	retries, wait := cfg.DB.Postgres.MaxRetry, time.Duration(cfg.DB.Postgres.RetryWaitTime)*time.Second

	return &Connection{
		Read:  Connect(read, retries, wait),
		Write: Connect(write, retries, wait),
	}
}

// Connect retries until the target answers and exits the process once retries run out.
func Connect(target Target, retries int, wait time.Duration) *sqlx.DB {
	logger := log.With().
		Str("name", target.Name).
		Str("host", target.Host).
		Str("port", target.Port).
		Str("dbName", target.Database).
		Logger()

	for attempt := 1; attempt <= max(retries, 1); attempt++ {
		db, err := sqlx.Connect(driverName, target.DSN())
		if err == nil {
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetConnMaxLifetime(connectionMaxLifetime)

			logger.Info().Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")
		time.Sleep(wait)
	}

	logger.Fatal().Int("attempts", retries).Msg("Giving up connecting to database")

	return nil
}

// WithTx commits when fn returns nil and rolls back otherwise, including on panic.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()

			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}

		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == constant.PqErrorCodeUniqueViolation
	}

	return false
}
