package httpapi

import (
	"errors"
	"net/http"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// Result is the uniform response envelope.
// - code: 2000 on success
// - type: 'success' | 'error'
// - message: string
// - result: payload
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// statusFor maps the service error taxonomy to HTTP status codes.
// Services never see HTTP; this is the only place the mapping lives.
func statusFor(err error) int {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
		permErr       *domain.PermissionError
		transitionErr *domain.InvalidTransitionError
		quotaErr      *domain.QuotaExceededError
		notFoundErr   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &permErr):
		return http.StatusForbidden
	case errors.As(err, &conflictErr), errors.As(err, &transitionErr):
		return http.StatusConflict
	case errors.As(err, &quotaErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError writes the error envelope with the mapped status. Internal
// failures hide their detail from the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, Fail(msg))
}
