//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"digital-checkout/internal/domain/model"
	"digital-checkout/internal/domain/ports/adapter"
	"digital-checkout/internal/domain/ports/repository"
	"digital-checkout/internal/infra/db/memory"
	"digital-checkout/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu sync.Mutex

	TokenFunc  func(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error)
	ChargeFunc func(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error)
	RefundErr  error

	Intents []int64
	Charges []int64
	Refunds []string
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*adapter.PaymentIntent, error) {
	m.mu.Lock()
	m.Intents = append(m.Intents, amount)
	m.mu.Unlock()
	return &adapter.PaymentIntent{ID: "pi_1", Amount: amount, Currency: currency, Status: "requires_payment_method"}, nil
}

func (m *MockGateway) CreateToken(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error) {
	if m.TokenFunc != nil {
		return m.TokenFunc(ctx, card)
	}
	return &adapter.PaymentToken{ID: "tok_1", Brand: "visa", Last4: "4242"}, nil
}

func (m *MockGateway) ChargeToken(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, token, amount, currency)
	}
	m.mu.Lock()
	m.Charges = append(m.Charges, amount)
	m.mu.Unlock()
	return &adapter.ChargeResult{Success: true, TransactionID: "ch_1"}, nil
}

func (m *MockGateway) RefundCharge(ctx context.Context, transactionID string, amount int64, currency string) (*adapter.RefundResult, error) {
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	m.mu.Lock()
	m.Refunds = append(m.Refunds, transactionID)
	m.mu.Unlock()
	return &adapter.RefundResult{RefundID: "re_1", Status: "succeeded"}, nil
}

// ---- Fixture wiring real use cases over the in-memory store ----

type fixture struct {
	creditRepo  *memory.CreditRepo
	orderRepo   *memory.OrderRepo
	accessRepo  *memory.AccessRepo
	productRepo *memory.ProductRepo
	cartStore   *memory.CartStore
	locker      *memory.Locker
	gateway     *MockGateway
	tm          *memory.TxManager

	credits  usecase.CreditUseCase
	orders   usecase.OrderUseCase
	carts    usecase.CartUseCase
	checkout usecase.CheckoutUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		creditRepo:  memory.NewCreditRepo(),
		orderRepo:   memory.NewOrderRepo(),
		accessRepo:  memory.NewAccessRepo(),
		productRepo: memory.NewProductRepo(),
		cartStore:   memory.NewCartStore(),
		locker:      memory.NewLocker(),
		gateway:     &MockGateway{},
	}
	f.tm = memory.NewTxManager()
	logger := newTestLogger()
	f.credits = usecase.NewCreditUseCase(f.creditRepo, f.tm, 0, logger)
	f.orders = usecase.NewOrderUseCase(f.orderRepo, f.accessRepo, f.tm, logger)
	f.carts = usecase.NewCartUseCase(f.cartStore, f.productRepo)
	f.rewire(f.credits)
	return f
}

// rewire rebuilds the checkout use case over a (possibly wrapped) credit use case.
func (f *fixture) rewire(credits usecase.CreditUseCase) {
	f.checkout = usecase.NewCheckoutUseCase(f.carts, credits, f.orders, f.productRepo, f.gateway, f.locker,
		usecase.CheckoutConfig{Currency: "usd"}, newTestLogger())
}

// rewireOrders rebuilds the order and checkout use cases over (possibly wrapped) stores.
func (f *fixture) rewireOrders(orders repository.OrderRepository, access repository.ProductAccessRepository) {
	f.orders = usecase.NewOrderUseCase(orders, access, f.tm, newTestLogger())
	f.rewire(f.credits)
}

func (f *fixture) product(t *testing.T, id string, cash, credits int64) *model.Product {
	t.Helper()
	p := &model.Product{ID: id, Title: "Product " + id, CashPrice: cash, CreditPrice: credits, Active: true}
	if err := f.productRepo.Save(context.Background(), nil, p); err != nil {
		t.Fatalf("save product: %v", err)
	}
	return p
}

func (f *fixture) addToCart(t *testing.T, userID, productID string, method model.PaymentMethod) {
	t.Helper()
	if _, err := f.carts.AddItem(context.Background(), userID, productID, method); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func (f *fixture) grantCredits(t *testing.T, userID string, amount int64) {
	t.Helper()
	if _, err := f.credits.AddCredits(context.Background(), userID, amount, model.CreditTypeBonus, nil, nil); err != nil {
		t.Fatalf("grant credits: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := f.credits.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return b
}

func (f *fixture) userOrders(t *testing.T, userID string) []*model.Order {
	t.Helper()
	os, err := f.orderRepo.ListByUser(context.Background(), nil, userID, 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return os
}

func testCard() *adapter.CardInput {
	return &adapter.CardInput{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}
