package chi

import (
	"crypto/subtle"
	"net/http"
)

// PrivateKeyHeader is the shared-secret header consultation clients must send.
const PrivateKeyHeader = "X-Private-Key"

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// PrivateKeyAuthMiddleware returns a middleware that validates the shared
// secret header. With required=false authentication is disabled entirely.
// A required guard whose key was never configured fails closed: guarded
// requests answer 500 until the deployment is fixed.
func PrivateKeyAuthMiddleware(privateKey string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if privateKey == "" {
				writeError(w, http.StatusInternalServerError, codeAuthNotConfigured,
					"private key not configured")
				return
			}

			presented := r.Header.Get(PrivateKeyHeader)
			if presented == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized,
					"missing "+PrivateKeyHeader+" header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(privateKey)) != 1 {
				writeError(w, http.StatusForbidden, codeForbidden, "invalid private key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
