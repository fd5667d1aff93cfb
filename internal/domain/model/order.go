package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"digital-checkout/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // created at checkout start
	OrderStatusCompleted OrderStatus = "completed" // paid, access granted
	OrderStatusFailed    OrderStatus = "failed"    // payment or ledger step failed
	OrderStatusRefunded  OrderStatus = "refunded"  // only reachable from completed
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodCredits PaymentMethod = "credits"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodCredits
}

// transitions lists the allowed next states per state. failed and refunded are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusCompleted, OrderStatusFailed},
	OrderStatusCompleted: {OrderStatusRefunded},
}

// CanTransition reports whether an order may move from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFailed || s == OrderStatusRefunded
}

// Order is a single purchase attempt.
type Order struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"userId"`
	Status               OrderStatus `json:"status"`
	CashTotal            int64       `json:"cashTotal"`
	CreditsTotal         int64       `json:"creditsTotal"`
	PaymentTransactionID *string     `json:"paymentTransactionId,omitempty"`
	RefundTransactionID  *string     `json:"refundTransactionId,omitempty"` // set once the gateway refund went through
	CompletedAt          *time.Time  `json:"completedAt,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
	Items                []OrderItem `json:"items"`
}

// Contains reports whether any item of the order is for productID.
func (o *Order) Contains(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// OrderItem is immutable once the order is created.
type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	ProductID       string          `json:"productId"`
	ProductSnapshot ProductSnapshot `json:"productSnapshot"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Price           int64           `json:"price,omitempty"`       // set when paid with cash
	CreditPrice     int64           `json:"creditPrice,omitempty"` // set when paid with credits
}

// NewOrderItem snapshots the product and records the price for the chosen method.
func NewOrderItem(p *Product, method PaymentMethod) (OrderItem, error) {
	if p == nil || !method.Valid() {
		return OrderItem{}, domain.ErrInvalidArgument
	}
	it := OrderItem{
		ID:              uuid.NewString(),
		ProductID:       p.ID,
		ProductSnapshot: p.Snapshot(),
		PaymentMethod:   method,
	}
	if method == PaymentMethodCredits {
		it.CreditPrice = p.CreditPrice
	} else {
		it.Price = p.CashPrice
	}
	return it, nil
}

// NewOrder builds a pending order. Totals must match the items.
func NewOrder(userID string, items []OrderItem, cashTotal, creditsTotal int64) (*Order, error) {
	if userID == "" || len(items) == 0 || cashTotal < 0 || creditsTotal < 0 {
		return nil, domain.ErrInvalidArgument
	}
	var cash, credits int64
	for _, it := range items {
		cash += it.Price
		credits += it.CreditPrice
	}
	if cash != cashTotal || credits != creditsTotal {
		return nil, fmt.Errorf("%w: totals do not match items (cash %d/%d, credits %d/%d)",
			domain.ErrInvalidArgument, cashTotal, cash, creditsTotal, credits)
	}
	now := time.Now().UTC()
	o := &Order{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       OrderStatusPending,
		CashTotal:    cashTotal,
		CreditsTotal: creditsTotal,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items:        make([]OrderItem, len(items)),
	}
	for i, it := range items {
		it.OrderID = o.ID
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		o.Items[i] = it
	}
	return o, nil
}
