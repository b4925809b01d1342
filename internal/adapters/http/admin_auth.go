package httpadapter

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
)

var errMissingAdminKey = errors.New("missing or invalid bearer token")

// requireAdminKey guards index maintenance and uploads. With no key
// configured the handler runs unguarded.
func (rt *Router) requireAdminKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.APIAdminKey == "" {
			next(w, r)
			return
		}
		if !isAuthorizedBearerHeader(r.Header.Get("Authorization"), rt.cfg.APIAdminKey) {
			rt.logger.Warn("admin_request_rejected",
				"request_id", requestIDFromContext(r.Context()),
				"path", r.URL.Path,
			)
			rt.writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "admin", errMissingAdminKey))
			return
		}
		next(w, r)
	})
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
}
