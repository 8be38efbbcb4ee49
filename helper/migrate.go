package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net/url"

	"lodge/config"
	"lodge/infras/postgres"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const migrationsSource = "file://migrations/postgres"

const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionStepUp  = "step-up"
	ActionDrop    = "drop"
	ActionVersion = "version"
)

type action struct {
	run  func(mig *migrate.Migrate) error
	done string
}

var actions = map[string]action{
	ActionUp:      {run: (*migrate.Migrate).Up, done: "Database migrations completed successfully"},
	ActionDown:    {run: func(mig *migrate.Migrate) error { return mig.Steps(-1) }, done: "Rolled back the latest migration"},
	ActionStepUp:  {run: func(mig *migrate.Migrate) error { return mig.Steps(1) }, done: "Applied the next migration"},
	ActionDrop:    {run: (*migrate.Migrate).Down, done: "Rolled back every migration"},
	ActionVersion: {run: logVersion, done: "Schema version read"},
}

func logVersion(mig *migrate.Migrate) error {
	version, dirty, err := mig.Version()
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Current schema version")

	return nil
}

// DSN points migrate at the write target and at the configured migrations table.
func DSN(cfg *config.Config) string {
	_, write := postgres.Targets(cfg)

	dsn, err := url.Parse(write.DSN())
	if err != nil {
		return write.DSN()
	}

	if cfg.DB.Postgres.MigrationTable != "" {
		query := dsn.Query()
		query.Set("x-migrations-table", cfg.DB.Postgres.MigrationTable)
		dsn.RawQuery = query.Encode()
	}

	return dsn.String()
}

func Runner(cfg *config.Config, name string) error {
	act, ok := actions[name]
	if !ok {
		return fmt.Errorf("unknown migration action %q", name)
	}

	mig, err := migrate.New(migrationsSource, DSN(cfg))
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	defer mig.Close()

	if err := act.run(mig); err != nil {
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Info().Str("action", name).Msg("Database schema already up to date")

			return nil
		case errors.Is(err, migrate.ErrNilVersion):
			log.Info().Str("action", name).Msg("No migration applied yet")

			return nil
		}

		return fmt.Errorf("error running migration action %s: %w", name, err)
	}

	log.Info().Str("action", name).Msg(act.done)

	return nil
}
