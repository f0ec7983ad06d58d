// Package pricing реализует расчёт скидки и баллов лояльности при погашении кода.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubperks/internal/model"
)

// LoyaltyRate задаёт долю итоговой суммы покупки, начисляемую баллами.
var LoyaltyRate = decimal.New(1, -1)

var hundred = decimal.NewFromInt(100)

// Breakdown содержит результат расчёта скидки.
type Breakdown struct {
	Original decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
	Points   int64
}

// CheckAmount проверяет сумму покупки: неотрицательная, не больше
// model.MaxAmount, не более двух знаков после запятой.
func CheckAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return model.ErrNegativeAmount
	}
	if amount.GreaterThan(model.MaxAmount) {
		return model.ErrAmountTooLarge
	}
	if !amount.Equal(amount.Round(2)) {
		return model.ErrAmountPrecision
	}
	return nil
}

// Discount вычисляет размер скидки. Процентная скидка округляется до копеек,
// фиксированная не превышает сумму покупки.
func Discount(rt model.ReductionType, value, amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch rt {
	case model.ReductionPercentage:
		d = amount.Mul(value).Div(hundred).Round(2)
	case model.ReductionFixed:
		d = decimal.Min(value, amount)
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// LoyaltyPoints возвращает количество баллов за покупку на итоговую сумму final.
func LoyaltyPoints(final decimal.Decimal) int64 {
	if !final.IsPositive() {
		return 0
	}
	return final.Mul(LoyaltyRate).Floor().IntPart()
}

// Apply рассчитывает скидку, итоговую сумму и баллы по условиям кода.
func Apply(rt model.ReductionType, value, amount decimal.Decimal) Breakdown {
	discount := Discount(rt, value, amount)
	final := amount.Sub(discount)

	return Breakdown{
		Original: amount,
		Discount: discount,
		Final:    final,
		Points:   LoyaltyPoints(final),
	}
}

// ToCents переводит сумму в целые сотые для хранения.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents переводит хранимые сотые в сумму.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
