package handler

import (
	"net/http"
	"os"
	"sync"

	"lodge/config"
	"lodge/di"
	"lodge/shared/logger"
	lodgeHTTP "lodge/transport/http"
)

var (
	once   sync.Once
	server *lodgeHTTP.HTTP
)

// Handler keeps one wired service per warm instance.
func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger()

		logger.Configure(cfg, os.Stdout)

		server = di.InitializeService()
	})

	server.ServeHTTP(w, r)
}
