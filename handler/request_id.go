package handler

import (
	"context"
	"net/http"

	"cocity-api/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an id, echoed in the response
// header and attached to the request's log entry.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		entry := logger.Log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		ctx = context.WithValue(ctx, logEntryKey, entry)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerFromContext returns the request's log entry, or a bare entry when the
// request did not pass through RequestIDMiddleware.
func LoggerFromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(logEntryKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logger.Log)
}
