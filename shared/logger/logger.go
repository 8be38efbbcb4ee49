package logger

import (
	"io"
	"os"
	"time"

	"lodge/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environments that keep the human readable console writer.
var consoleEnvs = map[string]bool{
	"":            true,
	"local":       true,
	"development": true,
	"test":        true,
}

func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	log.Trace().Msg("Zerolog initialized.")
}

// Configure sets the level and, outside local environments, switches to JSON lines on out
// tagged with the service name and environment.
func Configure(cfg *config.Config, out io.Writer) {
	SetLogLevel(cfg)

	if consoleEnvs[cfg.Server.Env] {
		return
	}

	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", cfg.App.Name).
		Str("env", cfg.Server.Env).
		Logger()
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

func SetLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil || cfg.Server.LogLevel == "" {
		level = zerolog.TraceLevel
	}

	zerolog.SetGlobalLevel(level)
	log.Trace().Str("loglevel", level.String()).Msg("Log level applied.")
}
