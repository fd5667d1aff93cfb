package model

import "time"

// Product is a catalog entry. Prices are in minor currency units (cents)
// and credits respectively.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CashPrice   int64     `json:"cashPrice"`
	CreditPrice int64     `json:"creditPrice"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Popularity  int64     `json:"popularity"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductSnapshot is the copy of a product embedded into an order item.
type ProductSnapshot struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CashPrice   int64     `json:"cashPrice"`
	CreditPrice int64     `json:"creditPrice"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	TakenAt     time.Time `json:"takenAt"`
}

func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		CashPrice:   p.CashPrice,
		CreditPrice: p.CreditPrice,
		DownloadURL: p.DownloadURL,
		TakenAt:     time.Now().UTC(),
	}
}

// PriceFor returns the price of the product in the currency selected by method.
func (p *Product) PriceFor(method PaymentMethod) int64 {
	if method == PaymentMethodCredits {
		return p.CreditPrice
	}
	return p.CashPrice
}
