package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"digital-checkout/internal/domain"
)

type CreditTransactionType string

const (
	CreditTypePurchase   CreditTransactionType = "purchase"   // credits bought with money
	CreditTypeSpend      CreditTransactionType = "spend"      // credits used at checkout
	CreditTypeRefund     CreditTransactionType = "refund"     // compensation or order refund
	CreditTypeBonus      CreditTransactionType = "bonus"      // granted by the platform
	CreditTypeExpiration CreditTransactionType = "expiration" // offsets an expired grant
)

func (t CreditTransactionType) Valid() bool {
	switch t {
	case CreditTypePurchase, CreditTypeSpend, CreditTypeRefund, CreditTypeBonus, CreditTypeExpiration:
		return true
	}
	return false
}

// CreditTransaction is one immutable row of a user's credit ledger.
// BalanceAfter is the running balance including this row.
type CreditTransaction struct {
	ID           string                `json:"id"` // ULID, sortable by creation
	UserID       string                `json:"userId"`
	Amount       int64                 `json:"amount"` // positive = credit, negative = debit
	BalanceAfter int64                 `json:"balanceAfter"`
	Type         CreditTransactionType `json:"transactionType"`
	ReferenceID  *string               `json:"referenceId,omitempty"` // order id or original transaction id
	ExpiresAt    *time.Time            `json:"expiresAt,omitempty"`   // only meaningful for positive rows
	CreatedAt    time.Time             `json:"createdAt"`
}

// NewCreditTransaction builds the next ledger row on top of prevBalance.
func NewCreditTransaction(userID string, prevBalance, amount int64, typ CreditTransactionType, ref *string, expiresAt *time.Time) (*CreditTransaction, error) {
	if userID == "" || !typ.Valid() || (amount == 0 && typ != CreditTypeExpiration) {
		return nil, domain.ErrInvalidArgument
	}
	after := prevBalance + amount
	if after < 0 {
		return nil, &domain.InsufficientCreditsError{Balance: prevBalance, Required: -amount}
	}
	now := time.Now().UTC()
	return &CreditTransaction{
		ID:           ulid.Make().String(),
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: after,
		Type:         typ,
		ReferenceID:  ref,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
	}, nil
}

// IsExpired reports whether a positive grant has passed its expiry at now.
func (t *CreditTransaction) IsExpired(now time.Time) bool {
	return t.Amount > 0 && t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// ExpiringCredit is a projection of a positive ledger row that will expire soon.
type ExpiringCredit struct {
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expiresAt"`
}
