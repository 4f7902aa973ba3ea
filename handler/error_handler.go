package handler

import (
	"errors"
	"net/http"

	"cocity-api/common"
	"cocity-api/service"
)

// ErrorHandlingMiddleware adapts a handler returning *common.AppError.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w, LoggerFromContext(r.Context()))
		}
	}
}

// serviceError maps an error from the auth and profile services to its HTTP
// form.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		return common.NewAppError(http.StatusConflict, service.ErrUserAlreadyExists.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, service.ErrPasswordTooLong):
		return common.NewAppError(http.StatusBadRequest, service.ErrPasswordTooLong.Error(), nil)
	case errors.Is(err, service.ErrInvalidBirthday):
		return common.NewAppError(http.StatusBadRequest, service.ErrInvalidBirthday.Error(), nil)
	case errors.Is(err, service.ErrProfileNotFound):
		return common.NewAppError(http.StatusNotFound, service.ErrProfileNotFound.Error(), nil)
	default:
		return common.NewAppError(http.StatusInternalServerError, "An internal error occurred", err)
	}
}
