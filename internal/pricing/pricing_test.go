package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/clubperks/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApply(t *testing.T) {
	type want struct {
		discount string
		final    string
		points   int64
	}

	tests := []struct {
		name   string
		rt     model.ReductionType
		value  string
		amount string
		want   want
	}{
		{
			name:   "percentage 20 of 100",
			rt:     model.ReductionPercentage,
			value:  "20",
			amount: "100",
			want:   want{discount: "20.00", final: "80.00", points: 8},
		},
		{
			name:   "fixed capped by amount",
			rt:     model.ReductionFixed,
			value:  "15",
			amount: "10",
			want:   want{discount: "10.00", final: "0.00", points: 0},
		},
		{
			name:   "fixed below amount",
			rt:     model.ReductionFixed,
			value:  "15",
			amount: "99.99",
			want:   want{discount: "15.00", final: "84.99", points: 8},
		},
		{
			name:   "percentage rounds half away from zero",
			rt:     model.ReductionPercentage,
			value:  "12.5",
			amount: "0.99",
			want:   want{discount: "0.12", final: "0.87", points: 0},
		},
		{
			name:   "percentage rounding up",
			rt:     model.ReductionPercentage,
			value:  "33.33",
			amount: "10.05",
			want:   want{discount: "3.35", final: "6.70", points: 0},
		},
		{
			name:   "zero amount",
			rt:     model.ReductionPercentage,
			value:  "50",
			amount: "0",
			want:   want{discount: "0.00", final: "0.00", points: 0},
		},
		{
			name:   "points floor",
			rt:     model.ReductionFixed,
			value:  "0",
			amount: "129.99",
			want:   want{discount: "0.00", final: "129.99", points: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Apply(tt.rt, dec(tt.value), dec(tt.amount))

			assert.Equal(t, tt.want.discount, b.Discount.StringFixed(2))
			assert.Equal(t, tt.want.final, b.Final.StringFixed(2))
			assert.Equal(t, tt.want.points, b.Points)
			assert.True(t, b.Original.Equal(dec(tt.amount)))
		})
	}
}

func TestLoyaltyPoints(t *testing.T) {
	assert.Equal(t, int64(8), LoyaltyPoints(dec("80.00")))
	assert.Equal(t, int64(8), LoyaltyPoints(dec("89.99")))
	assert.Equal(t, int64(0), LoyaltyPoints(dec("9.99")))
	assert.Equal(t, int64(0), LoyaltyPoints(decimal.Zero))
}

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, CheckAmount(dec("0")))
	assert.NoError(t, CheckAmount(dec("10.50")))
	assert.NoError(t, CheckAmount(dec("10.500")))
	assert.ErrorIs(t, CheckAmount(dec("-0.01")), model.ErrNegativeAmount)
	assert.ErrorIs(t, CheckAmount(dec("1.005")), model.ErrAmountPrecision)
	assert.ErrorIs(t, CheckAmount(dec("1.005")), model.ErrValidation)
	assert.NoError(t, CheckAmount(model.MaxAmount))
	assert.ErrorIs(t, CheckAmount(dec("1000000000000.01")), model.ErrAmountTooLarge)
	assert.ErrorIs(t, CheckAmount(dec("100000000000000000000")), model.ErrAmountTooLarge)
	assert.ErrorIs(t, CheckAmount(dec("100000000000000000000")), model.ErrValidation)
}

func TestApply_MaxAmountFitsInt64(t *testing.T) {
	b := Apply(model.ReductionFixed, decimal.Zero, model.MaxAmount)

	assert.Equal(t, int64(100_000_000_000), b.Points)
	assert.Equal(t, int64(100_000_000_000_000), ToCents(b.Final))
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(1050), ToCents(dec("10.5")))
	assert.Equal(t, int64(0), ToCents(decimal.Zero))
	assert.Equal(t, "84.99", FromCents(8499).StringFixed(2))
}
