package api

import (
	"net/http"

	"digital-checkout/internal/domain/model"
)

type balanceResponse struct {
	Balance         int64                  `json:"balance"`
	ExpiringCredits []model.ExpiringCredit `json:"expiringCredits"`
}

type purchaseRequest struct {
	Amount               int64  `json:"amount"`
	PaymentTransactionID string `json:"paymentTransactionId"`
	ExpiresInDays        int    `json:"expiresInDays"`
}

type purchaseResponse struct {
	Transaction *model.CreditTransaction `json:"transaction"`
	Balance     int64                    `json:"balance"`
	Message     string                   `json:"message"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := UserIDFrom(ctx)
	bal, err := s.credits.GetBalance(ctx, uid)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	expiring, err := s.credits.GetExpiringCredits(ctx, uid, s.opts.ExpiringWindowDays)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: bal, ExpiringCredits: expiring})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := limitParam(r, 50)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	txs, err := s.credits.GetTransactionHistory(ctx, UserIDFrom(ctx), limit)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if txs == nil {
		txs = []*model.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req purchaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount <= 0 || req.PaymentTransactionID == "" {
		writeError(w, http.StatusBadRequest, "amount and paymentTransactionId required")
		return
	}
	uid := UserIDFrom(ctx)
	row, err := s.credits.PurchaseCredits(ctx, uid, req.Amount, req.PaymentTransactionID, req.ExpiresInDays)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{
		Transaction: row,
		Balance:     row.BalanceAfter,
		Message:     "Credits purchased successfully",
	})
}
