package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
)

func newTestServer() *Server {
	return &Server{logger: common.NewSilentLogger()}
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func serve(h http.Handler, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestChain_RunsInOrder(t *testing.T) {
	var order []string
	mark := func(name string) middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := chain(http.HandlerFunc(okHandler), mark("first"), mark("second"), mark("third"))
	serve(h, "GET", "/", nil, nil)

	if strings.Join(order, ",") != "first,second,third" {
		t.Errorf("unexpected order %v", order)
	}
}

func TestCorrelate(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"correlation header", map[string]string{"X-Correlation-ID": "corr-1", "X-Request-ID": "req-1"}, "corr-1"},
		{"request id fallback", map[string]string{"X-Request-ID": "req-1"}, "req-1"},
		{"generated", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var sawLogger bool
			h := s.correlate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, sawLogger = r.Context().Value(requestLoggerKey{}).(*common.Logger)
			}))

			w := serve(h, "GET", "/api/health", nil, tt.headers)

			got := w.Header().Get(correlationHeader)
			if tt.want != "" && got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if tt.want == "" && len(got) != 36 {
				t.Errorf("expected generated uuid, got %q", got)
			}
			if !sawLogger {
				t.Error("expected correlated logger in request context")
			}
		})
	}
}

func TestRequestLogger_FallsBackToServerLogger(t *testing.T) {
	s := newTestServer()
	r := httptest.NewRequest("GET", "/", nil)
	if s.requestLogger(r) != s.logger {
		t.Error("expected server logger outside the chain")
	}
}

func TestAccessLog_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{logger: common.NewTextLogger("debug", &buf)}

	h := s.accessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	w := serve(h, "GET", "/api/nope", nil, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 to pass through, got %d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "HTTP request") || !strings.Contains(out, "status=404") {
		t.Errorf("expected access log line with status, got %q", out)
	}
}

func TestAllowCORS(t *testing.T) {
	h := allowCORS(http.HandlerFunc(okHandler))

	w := serve(h, "GET", "/api/leaderboard", nil, nil)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id") {
		t.Error("expected MCP session header to be allowed")
	}
	if w.Header().Get("Access-Control-Expose-Headers") != correlationHeader {
		t.Error("expected correlation header to be exposed")
	}

	preflight := allowCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called for OPTIONS")
	}))
	if w := serve(preflight, "OPTIONS", "/mcp", nil, nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestRecoverPanics(t *testing.T) {
	s := newTestServer()

	h := s.recoverPanics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := serve(h, "GET", "/api/leaderboard", nil, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["status"] != "error" {
		t.Errorf("unexpected body %v", body)
	}

	if w := serve(s.recoverPanics(http.HandlerFunc(okHandler)), "GET", "/", nil, nil); w.Code != http.StatusOK {
		t.Errorf("expected pass-through 200, got %d", w.Code)
	}
}

func TestLimitBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"within limit", "small", false},
		{"over limit", strings.Repeat("x", 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := limitBody(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, err := io.ReadAll(r.Body)
				if (err != nil) != tt.wantErr {
					t.Errorf("read error = %v, wantErr %v", err, tt.wantErr)
				}
			}))
			serve(h, "POST", "/mcp", strings.NewReader(tt.body), nil)
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	var _ http.Flusher = sr
	n, _ := sr.Write([]byte("event: message\n"))
	sr.Flush()

	if sr.bytes != n {
		t.Errorf("expected %d bytes recorded, got %d", n, sr.bytes)
	}
	if !rec.Flushed {
		t.Error("expected flush to reach the underlying writer")
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
}
