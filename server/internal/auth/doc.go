// Package auth provides authentication middleware for the samplerate server.
//
// APIKey(mode, header, key) returns HTTP middleware that validates the API key
// sent in the named request header. APIKeyOrQuery additionally accepts the
// key as the api_key query parameter, for WebSocket upgrades from browsers.
//
// When mode != "apikey" or key == "", all requests pass through (useful for
// local development with auth disabled). When the key is incorrect or absent,
// the middleware answers 401 with a JSON error body and never calls the
// wrapped handler.
package auth
