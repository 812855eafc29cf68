package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
)

const (
	correlationHeader = "X-Correlation-ID"
	maxRequestBody    = 1 << 20
)

type middleware func(http.Handler) http.Handler

// chain wraps h so that mws run in the order given.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) withMiddleware(h http.Handler) http.Handler {
	return chain(h,
		s.correlate,
		s.accessLog,
		allowCORS,
		limitBody(maxRequestBody),
		s.recoverPanics,
	)
}

type requestLoggerKey struct{}

// correlate tags the request with a correlation id, taken from the caller
// when present, and stores a logger carrying it in the request context.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = r.Header.Get("X-Request-ID")
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)

		ctx := context.WithValue(r.Context(), requestLoggerKey{}, s.logger.WithCorrelationId(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger returns the request's correlated logger, or the server
// logger outside the middleware chain.
func (s *Server) requestLogger(r *http.Request) *common.Logger {
	if l, ok := r.Context().Value(requestLoggerKey{}).(*common.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger := s.requestLogger(r)
		event := logger.Debug()
		switch {
		case rec.status >= 500:
			event = logger.Error()
		case rec.status >= 400:
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("HTTP request")
	})
}

// allowCORS opens the read-only API and the MCP endpoint to browser clients.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version")
		h.Set("Access-Control-Expose-Headers", correlationHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(n int64) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.requestLogger(r).Error().
					Str("panic", fmt.Sprint(v)).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status and size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// Flush lets streamed MCP responses through.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
