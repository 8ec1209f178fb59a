package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/orderdesk/internal/platform/httpx"
)

// AdminTokenHeader carries the administrative token on reset routes.
const AdminTokenHeader = "X-Admin-Token"

// AdminGuard protects administrative routes such as counter resets.
type AdminGuard struct {
	digest []byte
	logger *slog.Logger
}

// NewAdminGuard returns a guard for token. An empty token disables every
// guarded route.
func NewAdminGuard(token string, logger *slog.Logger) *AdminGuard {
	g := &AdminGuard{logger: logger}
	if token != "" {
		g.digest = digest(token)
	}
	return g
}

// Verify compares the supplied token with the configured one.
func (g *AdminGuard) Verify(token string) error {
	if g == nil || g.digest == nil {
		return ErrAdminDisabled
	}
	if token == "" {
		return ErrAdminTokenMissing
	}
	if !hmac.Equal(g.digest, digest(token)) {
		return ErrAdminTokenMismatch
	}
	return nil
}

// Require is chi-compatible middleware rejecting requests without a valid
// admin token.
func (g *AdminGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Verify(r.Header.Get(AdminTokenHeader)); err != nil {
			if g != nil && g.logger != nil {
				g.logger.Warn("admin guard rejected request", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func digest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
