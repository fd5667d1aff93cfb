package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"digital-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// declineSuffix makes the noop gateway decline cards ending in it.
const declineSuffix = "0002"

// NoopGateway approves everything except cards ending in 0002. Used in dev and tests.
type NoopGateway struct {
	mu      sync.Mutex
	seq     int64
	tokens  map[string]string // token -> last4
	charges map[string]int64  // charge id -> amount
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{tokens: map[string]string{}, charges: map[string]int64{}}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("noop_%s_%d", prefix, g.seq)
}

func (g *NoopGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*adapter.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next("pi")
	return &adapter.PaymentIntent{ID: id, Amount: amount, Currency: currency, Status: "requires_payment_method", ClientSecret: id + "_secret"}, nil
}

func (g *NoopGateway) CreateToken(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error) {
	if err := validateCard(card, time.Now()); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	tok := g.next("tok")
	g.tokens[tok] = last4(card.Number)
	return &adapter.PaymentToken{ID: tok, Brand: detectBrand(card.Number), Last4: last4(card.Number)}, nil
}

func (g *NoopGateway) ChargeToken(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	l4, ok := g.tokens[token]
	if !ok {
		return &adapter.ChargeResult{Success: false, Error: "unknown token"}, nil
	}
	if strings.HasSuffix(l4, declineSuffix) {
		return &adapter.ChargeResult{Success: false, Error: "card declined"}, nil
	}
	id := g.next("ch")
	g.charges[id] = amount
	return &adapter.ChargeResult{Success: true, TransactionID: id}, nil
}

func (g *NoopGateway) RefundCharge(ctx context.Context, transactionID string, amount int64, currency string) (*adapter.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	charged, ok := g.charges[transactionID]
	if !ok {
		return nil, fmt.Errorf("noop refund: unknown charge %s", transactionID)
	}
	if amount > charged {
		return nil, fmt.Errorf("noop refund: amount %d exceeds charge %d", amount, charged)
	}
	g.charges[transactionID] = charged - amount
	return &adapter.RefundResult{RefundID: g.next("re"), Status: "succeeded"}, nil
}
