package api

import (
	"errors"
	"net/http"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/repository"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := limitParam(r, 50)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	orders, err := s.orders.GetUserOrders(ctx, UserIDFrom(ctx), limit)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathParam(r, "id")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if o.UserID != UserIDFrom(ctx) {
		s.fail(ctx, w, domain.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (s *Server) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathParam(r, "id")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	o, err := s.checkout.RefundOrder(ctx, UserIDFrom(ctx), id)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grants, err := s.orders.GetUserAccessibleProducts(ctx, UserIDFrom(ctx))
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if grants == nil {
		grants = []*model.ProductAccess{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": grants})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := pathParam(r, "productId")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	uid := UserIDFrom(ctx)
	ok, err := s.orders.HasAccess(ctx, uid, productID)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if !ok {
		s.fail(ctx, w, domain.ErrNoAccess)
		return
	}
	if err := s.orders.IncrementDownloadCount(ctx, uid, productID); err != nil {
		s.fail(ctx, w, err)
		return
	}

	url := "/files/" + productID
	p, err := s.products.FindByID(ctx, repository.NoTX, productID)
	switch {
	case err == nil && p.DownloadURL != "":
		url = p.DownloadURL
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"downloadUrl": url})
}
