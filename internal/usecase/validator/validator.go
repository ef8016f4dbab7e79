package validator

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

// Validate normalizes and checks user-entered transfer fields before any network access
// Logic:
//  1. Trim the destination; empty means EmptyDestination
//  2. Parse the trimmed amount as a decimal; failure means InvalidAmount
//     (exponent notation, more than two decimal places or more than MaxAmount)
//  3. Reject amounts <= 0 with NonPositiveAmount
//  4. Trim the description; empty becomes domain.DefaultDescription
//
// Validate is pure and returns an error kind for every malformed input.
func Validate(kind domain.DestinationKind, destinationRaw, amountRaw, description string) (domain.ValidatedInput, error) {
	destination := strings.TrimSpace(destinationRaw)
	if destination == "" {
		return domain.ValidatedInput{}, domain.NewError(domain.StageValidation, domain.KindEmptyDestination, nil)
	}

	amount, err := ParseAmount(amountRaw)
	if err != nil {
		return domain.ValidatedInput{}, err
	}

	return domain.ValidatedInput{
		Destination: domain.Destination{Kind: kind, Value: destination},
		Amount:      amount,
		Description: NormalizeDescription(description),
	}, nil
}

// MaxAmount is the largest amount accepted from input
var MaxAmount = decimal.New(1, 15)

var (
	// ErrAmountRequired is wrapped by the InvalidAmount error returned for a blank amount
	ErrAmountRequired = errors.New("amount is required")
	// ErrAmountExponent rejects scientific notation such as 1e6
	ErrAmountExponent = errors.New("amount must be written without an exponent")
	// ErrAmountPrecision rejects fractions of a cent
	ErrAmountPrecision = errors.New("amount must have at most two decimal places")
	// ErrAmountTooLarge rejects amounts above MaxAmount
	ErrAmountTooLarge = errors.New("amount is too large")
)

// ParseAmount parses a strictly positive amount in plain decimal notation with at most two decimal places
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindInvalidAmount, ErrAmountRequired)
	}

	if strings.ContainsAny(trimmed, "eE") {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindInvalidAmount, ErrAmountExponent)
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindInvalidAmount, err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindNonPositiveAmount, nil)
	}

	// trailing zeros are fine, sub-cent values are not
	if !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindInvalidAmount, ErrAmountPrecision)
	}

	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, domain.NewError(domain.StageValidation, domain.KindInvalidAmount, ErrAmountTooLarge)
	}

	return amount, nil
}

// NormalizeDescription trims free text and substitutes the placeholder when empty
func NormalizeDescription(description string) string {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return domain.DefaultDescription
	}
	return trimmed
}
