package httpx

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS allows cross-origin calls from the listed origins. "*" allows any
// origin and an empty list allows none. Preflight requests are answered
// without reaching next.
func CORS(origins []string) Middleware {
	var denyAll func(*http.Request, string) bool
	if len(origins) == 0 {
		// go-chi/cors treats an empty allow-list as "*"
		denyAll = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:  origins,
		AllowOriginFunc: denyAll,
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID", "X-Bootstrap-Token"},
		ExposedHeaders:  []string{"X-Request-ID", "Retry-After"},
		MaxAge:          600,
	})
}

// ParseOrigins splits a comma separated origin list, dropping blanks.
func ParseOrigins(s string) []string {
	var out []string
	for o := range strings.SplitSeq(s, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
