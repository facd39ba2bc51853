package auth

import (
	"crypto/subtle"
	"net/http"
)

// QueryParam is the query parameter APIKeyOrQuery also accepts the key from.
const QueryParam = "api_key"

// APIKey returns middleware that enforces API key authentication on every
// request.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests are allowed (pass-through).
//   - Otherwise the middleware reads header from the request and compares it
//     to key in constant time.
//   - A missing, empty, or incorrect key returns 401 Unauthorized.
//
// header is matched case-insensitively, as with any HTTP header.
func APIKey(mode, header, key string) func(http.Handler) http.Handler {
	return require(mode, key, func(r *http.Request) string {
		return r.Header.Get(header)
	})
}

// APIKeyOrQuery is APIKey that falls back to the api_key query parameter when
// header is absent. Browsers cannot set headers on a WebSocket upgrade, so
// the form endpoint authenticates this way.
func APIKeyOrQuery(mode, header, key string) func(http.Handler) http.Handler {
	return require(mode, key, func(r *http.Request) string {
		if v := r.Header.Get(header); v != "" {
			return v
		}
		return r.URL.Query().Get(QueryParam)
	})
}

func require(mode, key string, presented func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Non-apikey modes or unconfigured key → allow everything.
		if mode != "apikey" || key == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presented(r)
			if got == "" {
				unauthorized(w, "missing api key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}` + "\n")) //nolint:errcheck
}
