package httpx

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// AssetHeaders are attached to every response of the asset server.
var AssetHeaders = map[string]string{
	"Access-Control-Allow-Origin": "*",
	"Cache-Control":               "no-store, no-cache, must-revalidate",
}

// WithHeaders sets headers on every response. They are applied again right
// before the header block is flushed, so handlers that clear them on error
// paths (http.FileServer drops Cache-Control on 404) still send them.
func WithHeaders(headers map[string]string, next http.Handler) http.Handler {
	apply := func(h http.Header) {
		for key, value := range headers {
			h.Set(key, value)
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apply(w.Header())
		next.ServeHTTP(NewResponseRecorder(w, apply), r)
	})
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r.Header.Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}

// WithLogging emits a structured debug record per request.
func WithLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		wrapped := NewResponseRecorder(w, nil)
		next.ServeHTTP(wrapped, r)
		logger.Debug("asset request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"bytes", wrapped.Written(),
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", r.Header.Get(requestIDHeader),
		)
	})
}

const accessLogTimeLayout = "02/Jan/2006 15:04:05"

// AccessLog writes one line per request in the form
//
//	<date> - <client host> - "<request line>" <status> <size>
//
// preceded by a "code N, message M" line for error responses.
type AccessLog struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func NewAccessLog(out io.Writer) *AccessLog {
	return &AccessLog{out: out, now: time.Now}
}

func (l *AccessLog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := NewResponseRecorder(w, nil)
		next.ServeHTTP(wrapped, r)

		status := wrapped.Status()
		size := "-"
		if wrapped.Written() > 0 {
			size = fmt.Sprint(wrapped.Written())
		}

		host := clientHost(r)
		if status >= http.StatusBadRequest {
			l.printf(host, "code %d, message %s", status, http.StatusText(status))
		}
		l.printf(host, "%q %d %s", requestLine(r), status, size)
	})
}

func (l *AccessLog) printf(host, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stamp := l.now().Format(accessLogTimeLayout)
	_, _ = fmt.Fprintf(l.out, "%s - %s - %s\n", stamp, host, fmt.Sprintf(format, args...))
}

func requestLine(r *http.Request) string {
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return r.Method + " " + uri + " " + r.Proto
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
