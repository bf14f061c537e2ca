// Package requestid tags status-server requests with an X-Request-Id.
package requestid

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const Header = "X-Request-Id"

type ctxKey struct{}

// New returns a 32 character hex id.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok
}

// Middleware keeps an incoming id or assigns one, echoing it on the
// response and storing it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" {
			id = New()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}
