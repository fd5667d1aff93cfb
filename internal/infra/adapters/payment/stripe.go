package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"digital-checkout/internal/config"
	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

const defaultStripeBaseURL = "https://api.stripe.com"

// StripeGateway talks to the Stripe REST API (form-encoded requests, JSON responses).
type StripeGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewStripeGateway(cfg config.StripeConfig) (*StripeGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("stripe api key empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultStripeBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid stripe base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeGateway{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *StripeGateway) Name() string { return "stripe" }

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// apiError is a non-2xx Stripe answer.
type apiError struct {
	Status  int
	Type    string
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("stripe %d %s/%s: %s", e.Status, e.Type, e.Code, e.Message)
}

func (e *apiError) isCardError() bool { return e.Type == "card_error" }

// post sends a form request and decodes a 2xx JSON body into out.
func (s *StripeGateway) post(ctx context.Context, path string, form url.Values, idempotent bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.apiKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotent {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var se stripeError
		_ = json.Unmarshal(body, &se)
		return &apiError{Status: resp.StatusCode, Type: se.Error.Type, Code: se.Error.Code, Message: se.Error.Message}
	}
	return json.Unmarshal(body, out)
}

func (s *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*adapter.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	var out struct {
		ID           string `json:"id"`
		Amount       int64  `json:"amount"`
		Currency     string `json:"currency"`
		Status       string `json:"status"`
		ClientSecret string `json:"client_secret"`
	}
	if err := s.post(ctx, "/v1/payment_intents", form, true, &out); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &adapter.PaymentIntent{ID: out.ID, Amount: out.Amount, Currency: out.Currency, Status: out.Status, ClientSecret: out.ClientSecret}, nil
}

func (s *StripeGateway) CreateToken(ctx context.Context, card adapter.CardInput) (*adapter.PaymentToken, error) {
	if err := validateCard(card, time.Now()); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("card[number]", normalizeNumber(card.Number))
	form.Set("card[exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("card[exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("card[cvc]", card.CVC)
	if card.Holder != "" {
		form.Set("card[name]", card.Holder)
	}
	var out struct {
		ID   string `json:"id"`
		Card struct {
			Brand string `json:"brand"`
			Last4 string `json:"last4"`
		} `json:"card"`
	}
	if err := s.post(ctx, "/v1/tokens", form, false, &out); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.isCardError() {
			return nil, &domain.TokenizationError{Reason: ae.Message}
		}
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &adapter.PaymentToken{ID: out.ID, Brand: strings.ToLower(out.Card.Brand), Last4: out.Card.Last4}, nil
}

func (s *StripeGateway) ChargeToken(ctx context.Context, token string, amount int64, currency string) (*adapter.ChargeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("source", token)
	var out struct {
		ID             string `json:"id"`
		Paid           bool   `json:"paid"`
		Status         string `json:"status"`
		FailureMessage string `json:"failure_message"`
	}
	if err := s.post(ctx, "/v1/charges", form, true, &out); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.isCardError() {
			return &adapter.ChargeResult{Success: false, Error: ae.Message}, nil
		}
		return nil, fmt.Errorf("charge token: %w", err)
	}
	if !out.Paid || out.Status != "succeeded" {
		reason := out.FailureMessage
		if reason == "" {
			reason = "charge " + out.Status
		}
		return &adapter.ChargeResult{Success: false, TransactionID: out.ID, Error: reason}, nil
	}
	return &adapter.ChargeResult{Success: true, TransactionID: out.ID}, nil
}

func (s *StripeGateway) RefundCharge(ctx context.Context, transactionID string, amount int64, currency string) (*adapter.RefundResult, error) {
	form := url.Values{}
	form.Set("charge", transactionID)
	if amount > 0 {
		form.Set("amount", strconv.FormatInt(amount, 10))
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := s.post(ctx, "/v1/refunds", form, true, &out); err != nil {
		return nil, fmt.Errorf("refund charge: %w", err)
	}
	return &adapter.RefundResult{RefundID: out.ID, Status: out.Status}, nil
}
