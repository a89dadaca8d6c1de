package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"broadside/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. The same sink is exposed through
// Writer so slog-based request logging lands next to application logs.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var sink io.Writer = os.Stdout
	if path := strings.TrimSpace(cfg.File); path != "" {
		fw, err := newSizeLimitedWriter(path, cfg.MaxMB)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("open log file failed; logging to stdout only")
		} else {
			sink = io.MultiWriter(os.Stdout, fw)
		}
	}
	setWriter(sink)

	var output io.Writer = sink
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: sink}
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the raw sink chosen by Init (stdout before Init runs).
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

func setWriter(w io.Writer) {
	writerMu.Lock()
	writer = w
	writerMu.Unlock()
}
