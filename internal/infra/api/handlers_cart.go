package api

import (
	"fmt"
	"net/http"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
)

type cartItemRequest struct {
	ProductID     string              `json:"productId"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cart, err := s.carts.GetCartWithTotals(ctx, UserIDFrom(ctx))
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.carts.ClearCart(ctx, UserIDFrom(ctx)); err != nil {
		s.fail(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req cartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentMethodCash
	}
	cart, err := s.carts.AddItem(ctx, UserIDFrom(ctx), req.ProductID, req.PaymentMethod)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := pathParam(r, "productId")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	var req cartItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.PaymentMethod.Valid() {
		s.fail(ctx, w, fmt.Errorf("%w: paymentMethod must be cash or credits", domain.ErrInvalidArgument))
		return
	}
	cart, err := s.carts.UpdatePaymentMethod(ctx, UserIDFrom(ctx), productID, req.PaymentMethod)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := pathParam(r, "productId")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	cart, err := s.carts.RemoveItem(ctx, UserIDFrom(ctx), productID)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
