package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"brightward.com/patients-api/internal/api"
	"brightward.com/patients-api/internal/config"
	"brightward.com/patients-api/internal/dal"
	"brightward.com/patients-api/internal/metrics"
	"brightward.com/patients-api/pkg/logsetup"
)

func main() {
	cfg := config.Load()

	logsetup.Startup("patients-api", cfg.ElasticsearchURL, cfg.LogLevel)

	log.Info().Str("config", cfg.String()).Msg("Starting patients-api service")

	metrics.StartSystemMetricsCollection(15 * time.Second)

	// A missing store configuration degrades the store to unavailable;
	// the service still starts and every store call fails cleanly.
	dir, conn := openDirectory(cfg)
	defer conn.Close()

	h := api.NewHandlers(dir, cfg.Location())
	router := api.SetupRoutes(h, cfg.FrontendURL)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().
			Str("port", cfg.APIPort).
			Msg("Server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Service shutdown complete")
}

// openDirectory picks the store variant: Couchbase when configured, the
// JSON file store when only PATIENTS_FILE is set, otherwise an
// unavailable store handle. The returned connection is nil for the
// non-Couchbase cases; Close handles that.
func openDirectory(cfg config.Config) (dal.Directory, *dal.Connection) {
	missing := cfg.MissingStoreVars()
	if len(missing) == 0 {
		conn, err := dal.Connect(dal.ConnectOptions{
			URL:        cfg.CouchbaseURL,
			Username:   cfg.CouchbaseUsername,
			Password:   cfg.CouchbasePassword,
			Bucket:     cfg.Bucket,
			Collection: cfg.Collection,
		})
		if err != nil {
			log.Error().Err(err).Msg("Store connection failed, serving with unavailable store")
			return dal.NewStore(nil), nil
		}
		return dal.NewStore(conn), conn
	}

	if cfg.PatientsFile != "" {
		log.Info().Str("path", cfg.PatientsFile).Msg("Using file-backed patient store")
		return dal.NewFileStore(cfg.PatientsFile), nil
	}

	log.Warn().
		Str("missing", strings.Join(missing, ", ")).
		Msg("Missing store environment variables, serving with unavailable store")
	return dal.NewStore(nil), nil
}
