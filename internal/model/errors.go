package model

import (
	"errors"
	"fmt"
)

// Классы ошибок. Конкретные причины ниже оборачивают один из классов, так что
// errors.Is отвечает и на вопрос о классе, и на вопрос о причине.
var (
	// ErrAuthorization возвращается, если у пользователя нет права на операцию.
	ErrAuthorization = errors.New("not authorized")
	// ErrNotFound возвращается для неизвестных предложений и кодов.
	ErrNotFound = errors.New("not found")
	// ErrState возвращается, если предложение или код в неподходящем состоянии.
	ErrState = errors.New("invalid state")
	// ErrConcurrency возвращается при конкуренции за блокировку; операцию можно повторить.
	ErrConcurrency = errors.New("concurrent access, retry")
	// ErrValidation возвращается для некорректных входных данных.
	ErrValidation = errors.New("invalid input")
	// ErrGeneration возвращается, если не удалось подобрать уникальную строку кода.
	ErrGeneration = errors.New("code generation failed")
)

var (
	ErrTierNotEligible = fmt.Errorf("%w: membership tier does not allow code generation", ErrAuthorization)

	ErrOfferNotFound = fmt.Errorf("%w: offer not found", ErrNotFound)
	ErrCodeNotFound  = fmt.Errorf("%w: code not found", ErrNotFound)

	ErrOfferInactive   = fmt.Errorf("%w: offer is not active", ErrState)
	ErrOfferNotStarted = fmt.Errorf("%w: offer is not valid yet", ErrState)
	ErrOfferExpired    = fmt.Errorf("%w: offer has expired", ErrState)
	ErrOutOfStock      = fmt.Errorf("%w: offer is out of stock", ErrState)
	ErrCodeAlreadyUsed = fmt.Errorf("%w: code already used", ErrState)
	ErrCodeCancelled   = fmt.Errorf("%w: code cancelled", ErrState)
	ErrCodeExpired     = fmt.Errorf("%w: code expired", ErrState)

	ErrStockBelowIssued = fmt.Errorf("%w: stock_available is below issued codes", ErrState)

	ErrLockTimeout = fmt.Errorf("%w: lock wait timeout", ErrConcurrency)

	ErrNegativeAmount  = fmt.Errorf("%w: amount must not be negative", ErrValidation)
	ErrAmountPrecision = fmt.Errorf("%w: amount must have at most two decimal places", ErrValidation)
	ErrAmountTooLarge  = fmt.Errorf("%w: amount exceeds the allowed maximum", ErrValidation)
	ErrInvalidCodeType = fmt.Errorf("%w: unknown code type", ErrValidation)
	ErrInvalidCode     = fmt.Errorf("%w: malformed code", ErrValidation)
	ErrInvalidOffer    = fmt.Errorf("%w: malformed offer definition", ErrValidation)
	ErrInvalidFilter   = fmt.Errorf("%w: malformed filter", ErrValidation)

	ErrCodeSpaceExhausted = fmt.Errorf("%w: unique code retries exhausted", ErrGeneration)
)

// reasons задаёт машиночитаемые коды причин для ответов API.
var reasons = []struct {
	err  error
	code string
}{
	{ErrTierNotEligible, "tier_not_eligible"},
	{ErrOfferNotFound, "offer_not_found"},
	{ErrCodeNotFound, "code_not_found"},
	{ErrOfferInactive, "offer_inactive"},
	{ErrOfferNotStarted, "offer_not_started"},
	{ErrOfferExpired, "offer_expired"},
	{ErrOutOfStock, "out_of_stock"},
	{ErrCodeAlreadyUsed, "already_used"},
	{ErrCodeCancelled, "cancelled"},
	{ErrCodeExpired, "expired"},
	{ErrStockBelowIssued, "stock_below_issued"},
	{ErrLockTimeout, "lock_timeout"},
	{ErrNegativeAmount, "negative_amount"},
	{ErrAmountPrecision, "amount_precision"},
	{ErrAmountTooLarge, "amount_too_large"},
	{ErrInvalidCodeType, "invalid_code_type"},
	{ErrInvalidCode, "invalid_code"},
	{ErrInvalidOffer, "invalid_offer"},
	{ErrInvalidFilter, "invalid_filter"},
	{ErrCodeSpaceExhausted, "generation_failed"},
	{ErrAuthorization, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrState, "invalid_state"},
	{ErrConcurrency, "retry"},
	{ErrValidation, "invalid_input"},
	{ErrGeneration, "generation_failed"},
}

// Reason возвращает машиночитаемый код причины ошибки либо пустую строку для
// ошибок вне доменной таксономии.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return ""
}
