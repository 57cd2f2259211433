package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/netutil"
)

// LoggingMiddleware logs one line per request with the client address,
// status, response size and duration. Server errors are logged as warnings.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		e := log.Info()
		if rec.status >= http.StatusInternalServerError {
			e = log.Warn()
		}
		e.
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("client", netutil.ClientIP(r)).
			Int("status", rec.status).
			Int("size", rec.size).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
