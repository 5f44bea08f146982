package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Feature packages wrap these so
// RespondError can map any failure to a status without importing them.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrReference       = errors.New("invalid reference")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("service unavailable")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unrecognized errors fail closed as 500 with no detail leaked.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrReference):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Reference", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
