package model

import "time"

// CartItem is one line of a user's cart. The cart keeps insertion order.
type CartItem struct {
	ProductID     string        `json:"productId"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Upsert adds the product or updates its payment method when already present.
func (c *Cart) Upsert(productID string, method PaymentMethod) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].PaymentMethod = method
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, PaymentMethod: method})
}

// Remove drops the product; it reports whether anything was removed.
func (c *Cart) Remove(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// PricedLine is a cart item resolved against the catalog.
type PricedLine struct {
	Product       *Product      `json:"product"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// PricedCart is a cart with totals computed per payment method.
type PricedCart struct {
	UserID       string       `json:"userId"`
	Lines        []PricedLine `json:"items"`
	CashTotal    int64        `json:"cashTotal"`
	CreditsTotal int64        `json:"creditsTotal"`
}

func NewPricedCart(userID string, lines []PricedLine) *PricedCart {
	pc := &PricedCart{UserID: userID, Lines: lines}
	for _, l := range lines {
		if l.PaymentMethod == PaymentMethodCredits {
			pc.CreditsTotal += l.Product.CreditPrice
		} else {
			pc.CashTotal += l.Product.CashPrice
		}
	}
	return pc
}

func (pc *PricedCart) IsEmpty() bool { return len(pc.Lines) == 0 }

// HasCashItems reports whether any line is flagged for cash payment.
func (pc *PricedCart) HasCashItems() bool {
	for _, l := range pc.Lines {
		if l.PaymentMethod != PaymentMethodCredits {
			return true
		}
	}
	return false
}

// OrderItems converts the cart lines into order items with product snapshots.
func (pc *PricedCart) OrderItems() ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(pc.Lines))
	for _, l := range pc.Lines {
		it, err := NewOrderItem(l.Product, l.PaymentMethod)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
