package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"digital-checkout/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a use-case error to its HTTP status and public message.
// Unknown errors become a 500 with a generic message.
func statusFor(err error) (int, string) {
	var insufficient *domain.InsufficientCreditsError
	var declined *domain.PaymentDeclinedError
	var tokenization *domain.TokenizationError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusBadRequest, insufficient.Error()
	case errors.As(err, &declined):
		return http.StatusBadRequest, declined.Error()
	case errors.As(err, &tokenization):
		return http.StatusBadRequest, tokenization.Error()
	}

	for _, s := range []error{
		domain.ErrEmptyCart, domain.ErrInsufficientCredits, domain.ErrMixedPaymentMismatch,
		domain.ErrCardDetailsRequired, domain.ErrPaymentDeclined, domain.ErrTokenization,
	} {
		if errors.Is(err, s) {
			return http.StatusBadRequest, s.Error()
		}
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, domain.ErrOrderNotFound.Error()
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, domain.ErrProductNotFound.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrNoAccess):
		return http.StatusForbidden, domain.ErrNoAccess.Error()
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, domain.ErrCheckoutInProgress.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
