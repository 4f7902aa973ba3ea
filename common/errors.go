package common

import (
	"encoding/json"
	"net/http"

	"cocity-api/logger"

	"github.com/sirupsen/logrus"
)

// AppError is the error value returned by handlers. Message is sent to the
// client; Err is logged and never leaves the process.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Send writes the error as JSON using the request scoped log entry.
func (e *AppError) Send(w http.ResponseWriter, log *logrus.Entry) {
	if log == nil {
		log = logrus.NewEntry(logger.Log)
	}
	if e.Err != nil {
		entry := log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"internal_error": e.Err.Error(),
		})
		if e.Code >= http.StatusInternalServerError {
			entry.Error(e.Message)
		} else {
			entry.Warn(e.Message)
		}
	}

	WriteJSON(w, e.Code, e)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response body")
	}
}
