package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config carries everything the service reads from the environment.
type Config struct {
	CouchbaseURL      string
	CouchbaseUsername string
	CouchbasePassword string
	Bucket            string
	Collection        string

	// PatientsFile selects the file-backed store variant when the
	// Couchbase configuration is absent.
	PatientsFile string

	Timezone         string
	FrontendURL      string
	APIPort          string
	LogLevel         string
	ElasticsearchURL string
}

// Load reads the .env file if one exists and resolves the configuration
// with the same fallback chain the environment uses in containers.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, assuming environment variables are set")
	}

	return Config{
		CouchbaseURL:      os.Getenv("COUCHBASE_URL"),
		CouchbaseUsername: getEnv("COUCHBASE_USERNAME", "Administrator"),
		CouchbasePassword: getEnv("COUCHBASE_PASSWORD", "password"),
		Bucket:            os.Getenv("COUCHBASE_BUCKET"),
		Collection:        os.Getenv("COUCHBASE_COLLECTION"),
		PatientsFile:      os.Getenv("PATIENTS_FILE"),
		Timezone:          getEnv("TIMEZONE", "Asia/Kolkata"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		APIPort:           getEnv("API_PORT", "8080"),
		LogLevel:          getEnv("API_LOG_LEVEL", "info"),
		ElasticsearchURL:  os.Getenv("ELASTICSEARCH_URL"),
	}
}

// MissingStoreVars names the store variables that are unset. A non-empty
// result degrades the store to unavailable instead of terminating the
// process; every access-layer call then fails cleanly per request.
func (c Config) MissingStoreVars() []string {
	required := []struct{ name, value string }{
		{"COUCHBASE_URL", c.CouchbaseURL},
		{"COUCHBASE_BUCKET", c.Bucket},
		{"COUCHBASE_COLLECTION", c.Collection},
	}

	missing := []string{}
	for _, v := range required {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	return missing
}

// Location resolves the configured timezone, falling back to UTC on a
// bad zone name so admission timestamps are still produced.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Str("timezone", c.Timezone).Msg("Unknown timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}

// String renders the non-secret parts for startup logging.
func (c Config) String() string {
	return strings.Join([]string{
		"bucket=" + c.Bucket,
		"collection=" + c.Collection,
		"timezone=" + c.Timezone,
		"port=" + c.APIPort,
	}, " ")
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
