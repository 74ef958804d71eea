package testlog

import (
	"testing"

	"github.com/danmuck/venvctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("test start")
}

// Logger returns the logger configured for tests.
func Logger() zerolog.Logger {
	logging.ConfigureTests()
	return log.Logger
}
