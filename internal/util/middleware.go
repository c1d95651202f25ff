package util

import (
	"net/http"
	"strings"
)

// GatewayPrefix is stripped from incoming paths when requests are routed
// through the public gateway.
const GatewayPrefix = "/api/access-planner"

// GatewayApiRewrite removes GatewayPrefix from the request path.
func GatewayApiRewrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, GatewayPrefix) {
			r.URL.Path = strings.TrimPrefix(r.URL.Path, GatewayPrefix)
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}

		next.ServeHTTP(w, r)
	})
}
