package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

var (
	ratingMin = decimal.NewFromInt(1)
	ratingMax = decimal.NewFromInt(5)
)

// MaxAmount ограничивает цену объявления и предложение престатора.
var MaxAmount = decimal.NewFromInt(1_000_000)

func amount(field string, p decimal.Decimal) error {
	if !p.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", model.ErrValidation, field)
	}
	if p.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s must not exceed %s", model.ErrValidation, field, MaxAmount.StringFixed(2))
	}
	if !p.Equal(p.Round(2)) {
		return fmt.Errorf("%w: %s must have at most 2 decimal places", model.ErrValidation, field)
	}
	return nil
}

// ListingDraft проверяет поля публикуемого объявления.
func ListingDraft(d model.ListingDraft) error {
	if d.Kind != model.ListingKindDelivery && d.Kind != model.ListingKindService {
		return fmt.Errorf("%w: unknown listing kind %q", model.ErrValidation, d.Kind)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if err := amount("price", d.Price); err != nil {
		return err
	}
	if d.Kind == model.ListingKindDelivery {
		if strings.TrimSpace(d.OriginAddress) == "" || strings.TrimSpace(d.DestinationAddress) == "" {
			return fmt.Errorf("%w: origin and destination are required for a delivery", model.ErrValidation)
		}
	}
	if d.WindowStart != nil && d.WindowEnd != nil && d.WindowEnd.Before(*d.WindowStart) {
		return fmt.Errorf("%w: window end is before window start", model.ErrValidation)
	}
	if d.WeightKg < 0 || d.LengthCm < 0 || d.WidthCm < 0 || d.HeightCm < 0 {
		return fmt.Errorf("%w: weight and dimensions must not be negative", model.ErrValidation)
	}
	return nil
}

// QuotedPrice проверяет цену, предложенную престатором при отклике.
func QuotedPrice(p decimal.Decimal) error {
	return amount("quoted price", p)
}

// Rating проверяет оценку: от 1 до 5, не более одного знака после запятой.
func Rating(r decimal.Decimal) error {
	if r.LessThan(ratingMin) || r.GreaterThan(ratingMax) {
		return fmt.Errorf("%w: rating must be between 1 and 5", model.ErrValidation)
	}
	if !r.Equal(r.Round(1)) {
		return fmt.Errorf("%w: rating must have one decimal place at most", model.ErrValidation)
	}
	return nil
}
