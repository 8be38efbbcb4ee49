package main

import (
	"os"

	"lodge/config"
	"lodge/di"
	"lodge/shared/logger"
	"lodge/shared/timezone"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.Configure(cfg, os.Stdout)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.Server.Env).
		Str("timezone", timezone.GetLocation().String()).
		Str("lockDriver", cfg.Booking.LockDriver).
		Msg("Booting reservation service")

	server := di.InitializeService()
	server.Serve()
}
