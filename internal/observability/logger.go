package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/meshstream/internal/logging"
)

// InitLogger configures the global logger for a daemon and stamps every
// record with the app name. Level and output knobs come from the
// MESHSTREAM_LOG_* environment variables via the logging package.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
