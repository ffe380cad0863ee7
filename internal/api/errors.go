package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// adminError renders the admin console's {success:false} envelope.
func adminError(w http.ResponseWriter, code int, msg, details string) {
	body := map[string]any{
		"success": false,
		"error":   msg,
	}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, code, body)
}

// Recoverer turns a panic into a generic 500. The panic value and stack go
// to the log only.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			httpError(w, http.StatusInternalServerError, "server_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
