package resolver

import (
	"net/http"

	"photoportal/pkg/platform/httputil"
)

// Middleware resolves the request's tenant from the Host header and attaches
// the outcome to the request context. Unknown or inactive tenant subdomains
// are rejected here with 404, expired tenants with 403; requests with no
// derivable subdomain pass through with an empty resolution so handlers can
// fall back to the authenticated principal.
func Middleware(r *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			res, err := r.ResolveHost(req.Context(), req.Host, req.URL.Path)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, req.WithContext(WithResolved(req.Context(), res)))
		})
	}
}
