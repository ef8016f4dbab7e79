package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yess-prog/PI-myBank-app/internal/domain"
)

func TestValidate_DirectTransfer(t *testing.T) {
	input, err := Validate(domain.DestinationRoutingIdentifier, "  RIB123 ", "50.00", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RoutingIdentifier("RIB123"), input.Destination)
	assert.True(t, input.Amount.Equal(decimal.RequireFromString("50.00")), "amount should be 50.00")
	assert.Equal(t, domain.DefaultDescription, input.Description)
}

func TestValidate_RequestFlowKeepsDescription(t *testing.T) {
	input, err := Validate(domain.DestinationRecipientEmail, "friend@example.com", " 12.5 ", "  dinner  ")

	require.NoError(t, err)
	assert.Equal(t, domain.RecipientEmail("friend@example.com"), input.Destination)
	assert.True(t, input.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "dinner", input.Description)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		amount      string
		wantKind    domain.ErrorKind
	}{
		{name: "Empty destination", destination: "", amount: "10", wantKind: domain.KindEmptyDestination},
		{name: "Whitespace destination", destination: " \t\n ", amount: "10", wantKind: domain.KindEmptyDestination},
		{name: "Empty destination wins over bad amount", destination: "  ", amount: "abc", wantKind: domain.KindEmptyDestination},
		{name: "Empty amount", destination: "RIB1", amount: "", wantKind: domain.KindInvalidAmount},
		{name: "Blank amount", destination: "RIB1", amount: "   ", wantKind: domain.KindInvalidAmount},
		{name: "Letters", destination: "RIB1", amount: "abc", wantKind: domain.KindInvalidAmount},
		{name: "Comma decimal separator", destination: "RIB1", amount: "10,50", wantKind: domain.KindInvalidAmount},
		{name: "Two dots", destination: "RIB1", amount: "1.2.3", wantKind: domain.KindInvalidAmount},
		{name: "NaN", destination: "RIB1", amount: "NaN", wantKind: domain.KindInvalidAmount},
		{name: "Infinity", destination: "RIB1", amount: "Infinity", wantKind: domain.KindInvalidAmount},
		{name: "Currency symbol", destination: "RIB1", amount: "$5", wantKind: domain.KindInvalidAmount},
		{name: "Zero", destination: "RIB1", amount: "0", wantKind: domain.KindNonPositiveAmount},
		{name: "Zero with decimals", destination: "RIB1", amount: "0.00", wantKind: domain.KindNonPositiveAmount},
		{name: "Negative", destination: "RIB1", amount: "-5", wantKind: domain.KindNonPositiveAmount},
		{name: "Negative fraction", destination: "RIB1", amount: "-0.01", wantKind: domain.KindNonPositiveAmount},
		{name: "Fraction of a cent", destination: "RIB1", amount: "1.005", wantKind: domain.KindInvalidAmount},
		{name: "Tenth of a cent", destination: "RIB1", amount: "0.001", wantKind: domain.KindInvalidAmount},
		{name: "Tiny exponent", destination: "RIB1", amount: "1e-9", wantKind: domain.KindInvalidAmount},
		{name: "Huge exponent", destination: "RIB1", amount: "1e50000000", wantKind: domain.KindInvalidAmount},
		{name: "Upper case exponent", destination: "RIB1", amount: "5E2", wantKind: domain.KindInvalidAmount},
		{name: "Above maximum", destination: "RIB1", amount: "1000000000000000.01", wantKind: domain.KindInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(domain.DestinationRoutingIdentifier, tt.destination, tt.amount, "desc")

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))

			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.StageValidation, de.Stage)
		})
	}
}

func TestParseAmount_SmallPositive(t *testing.T) {
	amount, err := ParseAmount("0.01")
	require.NoError(t, err)
	assert.Equal(t, "0.01", amount.String())
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, domain.DefaultDescription, NormalizeDescription(""))
	assert.Equal(t, domain.DefaultDescription, NormalizeDescription("   "))
	assert.Equal(t, "rent", NormalizeDescription(" rent "))
}

func TestParseAmount_BlankIsAmountRequired(t *testing.T) {
	_, err := ParseAmount("  ")
	assert.ErrorIs(t, err, ErrAmountRequired)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = ParseAmount("abc")
	assert.NotErrorIs(t, err, ErrAmountRequired)
}

func TestParseAmount_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "Two decimals", raw: "1.01", want: "1.01"},
		{name: "Trailing zeros beyond cents", raw: "1.500", want: "1.5"},
		{name: "Maximum", raw: "1000000000000000", want: "1000000000000000"},
		{name: "Sub-cent", raw: "1.005", wantErr: ErrAmountPrecision},
		{name: "Exponent", raw: "1e50000000", wantErr: ErrAmountExponent},
		{name: "Too large", raw: "1000000000000001", wantErr: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := ParseAmount(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amount.String())
		})
	}
}
