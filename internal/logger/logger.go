package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	pkgctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

const serviceName = "account-service"

// Logger is the process logger. It discards everything until Init runs so
// packages under test stay quiet.
var Logger = zerolog.New(io.Discard)

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter configures Logger from LOG_LEVEL (default info) and
// LOG_FORMAT ("json" or "console", default console) and installs it as the
// zerolog global.
func InitWithWriter(w io.Writer) {
	Logger = build(w, envLevel(), envOr("LOG_FORMAT", "console"))
	zlog.Logger = Logger
}

func build(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func envLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return def
}

// WithCtx returns Logger tagged with the request id carried by ctx, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	rid := pkgctx.GetRequestID(ctx)
	if rid == "" {
		return &Logger
	}
	l := Logger.With().Str("request_id", rid).Logger()
	return &l
}
