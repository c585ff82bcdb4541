package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
)

// AdminTokenHeader carries the operator token on monitor routes
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator routes with a shared static token,
// read from X-Admin-Token or an "Authorization: Bearer" header
func RequireAdminToken(token string) func(next http.Handler) http.Handler {
	expected := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := presentedToken(r)
			if presented == "" {
				pkghttp.WriteUnauthorized(w, "missing admin token")
				return
			}

			got := sha256.Sum256([]byte(presented))
			if token == "" || subtle.ConstantTimeCompare(got[:], expected[:]) != 1 {
				pkghttp.WriteUnauthorized(w, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(AdminTokenHeader)); t != "" {
		return t
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
