package middleware

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
)

// slogRecovery adapts slog to handlers.RecoveryHandlerLogger.
type slogRecovery struct{}

func (slogRecovery) Println(v ...any) {
	slog.Error("panic in handler", "panic", v)
}

func Recovery(next http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogRecovery{}),
		handlers.PrintRecoveryStack(false),
	)(next)
}

func Logger(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		slog.Debug("request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"size", p.Size,
		)
	})
}

// CORS allows the listed origins; "*" allows any.
func CORS(origins ...string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}
