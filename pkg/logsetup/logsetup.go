package logsetup

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var startupOnce sync.Once

// elasticsearchWriter ships each log event to an Elasticsearch index.
type elasticsearchWriter struct {
	url string
}

func (ew elasticsearchWriter) Write(p []byte) (int, error) {
	resp, err := http.Post(ew.url+"/_doc", "application/json", bytes.NewBuffer(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}
	return len(p), nil
}

// Startup configures the global zerolog logger: pretty console output,
// plus ECS-formatted shipping to Elasticsearch when a URL is configured.
// The level string follows zerolog's names; unknown values fall back to
// info. Safe to call more than once; only the first call wins.
func Startup(app, elasticsearchURL, level string) {
	startupOnce.Do(func() {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(lvl)

		console := zerolog.ConsoleWriter{Out: os.Stdout}

		if elasticsearchURL == "" {
			log.Logger = zerolog.New(console).With().Str("app", app).Timestamp().Logger()
			return
		}

		ecs := ecszerolog.New(elasticsearchWriter{url: elasticsearchURL + "/logs"})
		multi := zerolog.MultiLevelWriter(ecs, console)
		log.Logger = zerolog.New(multi).With().Str("app", app).Timestamp().Logger()
	})
}
