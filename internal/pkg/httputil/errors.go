package httputil

import (
	"errors"
	"net/http"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// FromError maps the domain error taxonomy onto HTTP statuses and
// writes the standard error envelope. Anything outside the taxonomy is
// treated as unexpected and hidden behind a generic 500.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		JSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, domain.ErrBusinessRule):
		JSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "BUSINESS_RULE"})
	case errors.Is(err, domain.ErrRateLimited):
		JSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Code: "RATE_LIMITED"})
	default:
		InternalError(w, err)
	}
}
