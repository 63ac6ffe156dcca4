package testlog

import (
	"testing"

	"github.com/knowfox/gopher/internal/logging"
	"github.com/rs/zerolog/log"
)

// Start installs the test logger and logs the running test's name.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}
