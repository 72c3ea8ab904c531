package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDContextKey contextKey = "request_id"

	// RequestIDHeader carries the request id back to the client and is
	// honored on the way in so upstream proxies can correlate logs.
	RequestIDHeader = "X-Request-ID"
)

// RequestID assigns every request a unique id, echoes it in the
// response header and logs the request once it completes.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))

		logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"duration":   time.Since(start).String(),
		}).Info("request handled")
	})
}

// GetRequestID extracts the request id from context.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDContextKey).(string)
	return id, ok
}
