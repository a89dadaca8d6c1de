package httptransport

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"broadside/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// APILogMiddleware writes one JSON access line per request to the shared
// log sink. Bodies are never logged here.
func APILogMiddleware() func(http.Handler) http.Handler {
	logger := slog.New(slog.NewJSONHandler(logging.Writer(), nil)).With(slog.String("component", "http"))
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:              slog.LevelInfo,
		Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
		LogRequestBody:     func(*http.Request) bool { return false },
		LogResponseBody:    func(*http.Request) bool { return false },
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogExtraAttrs:      requestAttrs,
	})
}

func requestAttrs(req *http.Request, _ string, _ int) []slog.Attr {
	route := req.URL.Path
	if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	return []slog.Attr{
		slog.String("request_id", chimw.GetReqID(req.Context())),
		slog.String("method", req.Method),
		slog.String("route", route),
		slog.String("path", req.URL.Path),
		slog.String("remote", req.RemoteAddr),
	}
}

// BodyCaptureMiddleware attaches up to limit bytes of the request and
// response bodies to the access line. Streams pass through untouched.
func BodyCaptureMiddleware(limit int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = 4096
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSSERequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			in, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(in))

			out := &teeWriter{ResponseWriter: w, limit: limit}
			next.ServeHTTP(out, r)

			reqShown, reqCut := clip(in, limit)
			httplog.SetAttrs(r.Context(),
				slog.Any("request_body", bodyValue(reqShown)),
				slog.Any("response_body", bodyValue(out.buf.Bytes())),
				slog.Bool("request_body_truncated", reqCut),
				slog.Bool("response_body_truncated", out.cut),
			)
		})
	}
}

func clip(b []byte, limit int) ([]byte, bool) {
	if len(b) > limit {
		return b[:limit], true
	}
	return b, false
}

// teeWriter keeps a bounded copy of what the handler writes.
type teeWriter struct {
	http.ResponseWriter
	buf   bytes.Buffer
	limit int
	cut   bool
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if room := t.limit - t.buf.Len(); room > 0 {
		kept, cut := clip(p, room)
		t.buf.Write(kept)
		t.cut = t.cut || cut
	} else if len(p) > 0 {
		t.cut = true
	}
	return t.ResponseWriter.Write(p)
}

func (t *teeWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// bodyValue logs JSON bodies as structured values and anything else as text.
func bodyValue(b []byte) any {
	if len(b) == 0 {
		return ""
	}
	var v any
	if json.Unmarshal(b, &v) != nil {
		return string(b)
	}
	return v
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// AdminAuthMiddleware is a no-op when adminKey is empty.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !CheckAdminAuth(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckAdminAuth accepts the key in X-Admin-Key or as a bearer token.
func CheckAdminAuth(r *http.Request, adminKey string) bool {
	if v := r.Header.Get("X-Admin-Key"); v != "" && keyEqual(v, adminKey) {
		return true
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return keyEqual(token, adminKey)
	}
	return false
}

func keyEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// ParseLimit reads ?limit=, falling back to def on absence or garbage.
func ParseLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return def
	}
	return n
}

func isSSERequest(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream") ||
		r.URL.Path == "/api/public/spectate/events"
}
