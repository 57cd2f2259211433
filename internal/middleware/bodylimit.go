package middleware

import (
	"errors"
	"net/http"
)

// BodyLimitMiddleware caps the request body at limit bytes. Reading past the
// limit fails with an *http.MaxBytesError. Mounted after
// GzipRequestMiddleware it caps the decompressed body.
func BodyLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// BodyReadStatus maps an error from reading a request body to a status code.
func BodyReadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
