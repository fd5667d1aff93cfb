package payment

import (
	"strings"
	"time"

	"github.com/ShiraazMoollatjie/goluhn"

	"digital-checkout/internal/domain"
	"digital-checkout/internal/domain/ports/adapter"
)

// normalizeNumber strips the separators people type into card fields.
func normalizeNumber(n string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(n)
}

// validateCard performs the local checks every provider applies before tokenizing.
func validateCard(card adapter.CardInput, now time.Time) error {
	num := normalizeNumber(card.Number)
	if len(num) < 12 || len(num) > 19 {
		return &domain.TokenizationError{Reason: "invalid card number length"}
	}
	if err := goluhn.Validate(num); err != nil {
		return &domain.TokenizationError{Reason: "invalid card number"}
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		return &domain.TokenizationError{Reason: "invalid expiry month"}
	}
	year := card.ExpYear
	if year < 100 {
		year += 2000
	}
	// valid through the last day of the expiry month
	if !time.Date(year, time.Month(card.ExpMonth)+1, 1, 0, 0, 0, 0, time.UTC).After(now) {
		return &domain.TokenizationError{Reason: "card expired"}
	}
	if l := len(card.CVC); l < 3 || l > 4 {
		return &domain.TokenizationError{Reason: "invalid cvc"}
	}
	return nil
}

func detectBrand(number string) string {
	n := normalizeNumber(number)
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case len(n) >= 2 && n[:2] >= "51" && n[:2] <= "55", len(n) >= 4 && n[:4] >= "2221" && n[:4] <= "2720":
		return "mastercard"
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return "amex"
	case strings.HasPrefix(n, "6011"), strings.HasPrefix(n, "65"):
		return "discover"
	default:
		return "unknown"
	}
}

func last4(number string) string {
	n := normalizeNumber(number)
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}
