package main

import (
	"os"

	"lodge/config"
	"lodge/helper"
	"lodge/shared/logger"

	"github.com/rs/zerolog/log"
)

const argLength = 2

func main() {
	logger.InitLogger()

	if len(os.Args) < argLength {
		log.Fatal().Msg("Migration action is required: up, down, drop, step-up or version")
	}

	cfg := config.Get()
	logger.Configure(cfg, os.Stdout)

	if err := helper.Runner(cfg, os.Args[1]); err != nil {
		log.Fatal().Err(err).Str("action", os.Args[1]).Msg("Migration failed")
	}
}
