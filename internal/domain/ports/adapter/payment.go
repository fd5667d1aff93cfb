package adapter

import "context"

// CardInput is raw card data as supplied by the buyer.
type CardInput struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
	CVC      string `json:"cvc"`
	Holder   string `json:"holderName,omitempty"`
}

type PaymentIntent struct {
	ID           string
	Amount       int64
	Currency     string
	Status       string
	ClientSecret string
}

type PaymentToken struct {
	ID    string
	Brand string
	Last4 string
}

// ChargeResult with Success=false is a gateway decline; Error carries the reason.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Error         string
}

type RefundResult struct {
	RefundID string
	Status   string
}

// PaymentGateway is implemented by every charge provider. Amounts are minor units.
type PaymentGateway interface {
	Name() string
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	// CreateToken fails with *domain.TokenizationError on malformed card data.
	CreateToken(ctx context.Context, card CardInput) (*PaymentToken, error)
	ChargeToken(ctx context.Context, token string, amount int64, currency string) (*ChargeResult, error)
	RefundCharge(ctx context.Context, transactionID string, amount int64, currency string) (*RefundResult, error)
}
