package middleware

import (
	"net/http"
	"strings"

	"github.com/MonkyMars/gecho"
)

// Health checks and metric scrapes are polled constantly and stay out of the access log.
var quietPrefixes = []string{"/health/", "/metrics"}

// SetupLoggerMiddleware writes one access log line per request through the middleware logger.
func (mw *Middleware) SetupLoggerMiddleware() func(http.Handler) http.Handler {
	logging := gecho.Handlers.CreateLoggingMiddleware(mw.logger)
	return func(next http.Handler) http.Handler {
		logged := logging(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuietPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}

func isQuietPath(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
