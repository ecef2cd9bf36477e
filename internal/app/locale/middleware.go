package locale

import (
	"net/http"
)

type MiddlewareOptions struct {
	// IsPage selects requests that may be redirected to the remembered
	// locale. Fragments, assets and form posts are never redirected.
	IsPage func(*http.Request) bool
	// Preferred returns the remembered locale. Defaults to FromCookie.
	Preferred func(*http.Request) (string, bool)
}

// Middleware strips the locale segment from the request path before routing
// and stores the code in the request context.
//
// A page GET without a locale segment is redirected to the remembered locale
// when that is not the default. An explicit "/en/..." prefix is honored as-is.
func Middleware(opts MiddlewareOptions) func(http.Handler) http.Handler {
	preferred := opts.Preferred
	if preferred == nil {
		preferred = FromCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code, rest, prefixed := FromPath(r.URL.Path)

			if !prefixed && r.Method == http.MethodGet && r.Header.Get("HX-Request") == "" && opts.IsPage != nil && opts.IsPage(r) {
				if pref, ok := preferred(r); ok && pref != Default {
					target := WithLocale(r.URL.Path, pref)
					if r.URL.RawQuery != "" {
						target += "?" + r.URL.RawQuery
					}
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
			}

			if prefixed {
				r2 := r.Clone(r.Context())
				r2.URL.Path = rest
				r2.URL.RawPath = ""
				r = r2
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), code)))
		})
	}
}
