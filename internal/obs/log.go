package obs

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	rootOnce sync.Once
	root     zerolog.Logger
)

// Root returns the process-wide logger. Output is JSON to stdout; the level
// comes from GRIDNET_LOG_LEVEL (default info).
func Root() zerolog.Logger {
	rootOnce.Do(func() {
		root = newRoot(os.Stdout)
	})
	return root
}

// Component returns a logger tagged with the originating component, e.g.
// "command", "member", "http".
func Component(name string) zerolog.Logger {
	return Root().With().Str("component", name).Logger()
}

func newRoot(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("GRIDNET_LOG_LEVEL")); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
