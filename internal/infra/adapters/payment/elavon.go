package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/oklog/ulid/v2"

	"digital-checkout/internal/config"
	"digital-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*ElavonGateway)(nil)

const defaultElavonDeclineRate = 0.02

// ElavonGateway simulates the Elavon Fusebox API: it validates cards locally,
// waits a configurable latency and declines a configurable share of charges.
type ElavonGateway struct {
	merchantID  string
	declineRate float64
	latency     time.Duration
	roll        func() float64
}

func NewElavonGateway(cfg config.ElavonConfig) *ElavonGateway {
	rate := defaultElavonDeclineRate
	if cfg.DeclineRate != nil {
		rate = *cfg.DeclineRate
	}
	return &ElavonGateway{
		merchantID:  cfg.MerchantID,
		declineRate: rate,
		latency:     cfg.Latency,
		roll:        rand.Float64,
	}
}

func (g *ElavonGateway) Name() string { return "elavon" }

// wait simulates network latency and honours cancellation.
func (g *ElavonGateway) wait(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *ElavonGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*adapter.PaymentIntent, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	id := "elavon_pi_" + ulid.Make().String()
	return &adapter.PaymentIntent{ID: id, Amount: amount, Currency: currency, Status: "pending", ClientSecret: "elavon_secret_" + ulid.Make().String()}, nil
}

func (g *ElavonGateway) CreateToken(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error) {
	if err := validateCard(card, time.Now()); err != nil {
		return nil, err
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return &adapter.PaymentToken{ID: "elavon_tok_" + ulid.Make().String(), Brand: detectBrand(card.Number), Last4: last4(card.Number)}, nil
}

func (g *ElavonGateway) ChargeToken(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return &adapter.ChargeResult{Success: false, Error: "invalid amount"}, nil
	}
	if g.roll() < g.declineRate {
		return &adapter.ChargeResult{Success: false, Error: "Insufficient funds or expired card"}, nil
	}
	return &adapter.ChargeResult{Success: true, TransactionID: "elavon_charge_" + ulid.Make().String()}, nil
}

func (g *ElavonGateway) RefundCharge(ctx context.Context, transactionID string, amount int64, currency string) (*adapter.RefundResult, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if transactionID == "" {
		return nil, fmt.Errorf("elavon refund: empty transaction id")
	}
	return &adapter.RefundResult{RefundID: "elavon_refund_" + ulid.Make().String(), Status: "succeeded"}, nil
}
