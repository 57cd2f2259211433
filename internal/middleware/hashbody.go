package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/pkg/hash"
)

// HeaderHash carries the hex HMAC-SHA256 of a body.
const HeaderHash = "HashSHA256"

// HashValidationMiddleware checks the HashSHA256 header of a request against
// the HMAC-SHA256 of its body under key.
//
// Requests pass unchecked when key is empty or the header is missing or
// "none". A mismatch is answered with 400 Bad Request. The hash covers the
// body as the next handler reads it, so the middleware must run after
// GzipRequestMiddleware.
//
// Example:
//
//	r.Use(middleware.GzipRequestMiddleware)
//	r.Use(middleware.HashValidationMiddleware("my-secret-key"))
//
//	// Client sends:
//	POST /ingest/agent/host1
//	Content-Type: application/json
//	HashSHA256: abc123...
//
//	{"Alloc": 123456, "PollCount": 5}
func HashValidationMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedHash := r.Header.Get(HeaderHash)
			if receivedHash == "" || receivedHash == "none" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "Failed to read request body", BodyReadStatus(err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !hash.ValidateHash(body, key, receivedHash) {
				log.Warn().Str("uri", r.RequestURI).Msg("invalid hash signature")
				http.Error(w, "Invalid hash signature", http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
