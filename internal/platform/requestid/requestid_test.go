package requestid

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	id := New()
	if len(id) != 32 {
		t.Fatalf("New() len=%d, want 32", len(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		t.Fatalf("New()=%q not hex: %v", id, err)
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(Header, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get(Header) != "abc" {
		t.Fatalf("incoming id not kept: ctx=%q header=%q", seen, rec.Header().Get(Header))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if len(seen) != 32 || rec.Header().Get(Header) != seen {
		t.Fatalf("generated id=%q header=%q", seen, rec.Header().Get(Header))
	}
}
