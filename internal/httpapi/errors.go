package httpapi

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
)

// HandlerError is an error returned from a route handler, carrying the
// HTTP status to respond with. Grounded on
// apiserver/utils/error.go's HandlerError.
type HandlerError struct {
	Code    int
	Message string
}

func (e *HandlerError) Error() string { return e.Message }

// NewHandlerError wraps a plain message at the given status code.
func NewHandlerError(code int, message string) *HandlerError {
	return &HandlerError{Code: code, Message: message}
}

// classify maps a core error (wrapping one of ledgerrors' sentinels) to
// the HTTP status spec.md §7's taxonomy prescribes. Unrecognized errors
// fall back to 500.
func classify(err error) *HandlerError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledgerrors.ErrValidation), errors.Is(err, ledgerrors.ErrAdmission):
		return &HandlerError{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ledgerrors.ErrNotFound):
		return &HandlerError{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ledgerrors.ErrContention):
		return &HandlerError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, ledgerrors.ErrTimeout):
		return &HandlerError{Code: http.StatusGatewayTimeout, Message: err.Error()}
	case errors.Is(err, ledgerrors.ErrPersistence):
		return &HandlerError{Code: http.StatusInternalServerError, Message: "internal server error"}
	default:
		return &HandlerError{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}
