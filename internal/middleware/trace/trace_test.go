package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected generated ID, got %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q != context ID %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if got := m.GetMetrics(); got.TotalRequests != 1 || got.InFlight != 0 {
		t.Errorf("unexpected metrics: %+v", got)
	}
}

func TestMiddleware_PropagatesInboundID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"valid", "abc-123", true},
		{"injection", "abc\nlevel=ERROR", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewMiddleware().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.inbound)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.inbound) != tt.keep {
				t.Errorf("inbound %q kept=%v, want %v", tt.inbound, seen == tt.inbound, tt.keep)
			}
		})
	}
}
