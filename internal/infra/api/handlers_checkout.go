package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/ports/adapter"
)

type cardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	CVC         string `json:"cvc"`
	Name        string `json:"name"`
}

type checkoutRequest struct {
	CardDetails *cardDetails `json:"cardDetails"`
}

func (c *cardDetails) toInput() *adapter.CardInput {
	if c == nil {
		return nil
	}
	return &adapter.CardInput{
		Number:   c.Number,
		ExpMonth: c.ExpiryMonth,
		ExpYear:  c.ExpiryYear,
		CVC:      c.CVC,
		Holder:   c.Name,
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *Server) handleCheckoutCash(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.checkout.CheckoutWithCash(r.Context(), UserIDFrom(r.Context()), req.CardDetails.toInput())
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckoutCredits(w http.ResponseWriter, r *http.Request) {
	res, err := s.checkout.CheckoutWithCredits(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckoutMixed(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.checkout.CheckoutMixed(r.Context(), UserIDFrom(r.Context()), req.CardDetails.toInput())
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
