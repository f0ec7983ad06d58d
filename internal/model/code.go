package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodeType описывает носитель кода.
type CodeType string

const (
	CodeTypeQR    CodeType = "qr"
	CodeTypePromo CodeType = "promo"
	CodeTypeNFC   CodeType = "nfc"
)

var codePrefixes = map[CodeType]string{
	CodeTypeQR:    "QR",
	CodeTypePromo: "PR",
	CodeTypeNFC:   "NF",
}

// ParseCodeType разбирает тип кода без учёта регистра.
func ParseCodeType(s string) (CodeType, error) {
	t := CodeType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := codePrefixes[t]; !ok {
		return "", ErrInvalidCodeType
	}
	return t, nil
}

// Prefix возвращает префикс строки кода для данного типа.
func (t CodeType) Prefix() string {
	return codePrefixes[t]
}

// CodeTypeByPrefix возвращает тип кода по его префиксу.
func CodeTypeByPrefix(prefix string) (CodeType, bool) {
	for t, p := range codePrefixes {
		if p == prefix {
			return t, true
		}
	}
	return "", false
}

// CodeStatus описывает хранимый статус кода.
type CodeStatus string

const (
	CodeStatusActive    CodeStatus = "active"
	CodeStatusUsed      CodeStatus = "used"
	CodeStatusExpired   CodeStatus = "expired"
	CodeStatusCancelled CodeStatus = "cancelled"
)

// ParseCodeStatus разбирает статус кода из фильтра запроса.
func ParseCodeStatus(s string) (CodeStatus, error) {
	st := CodeStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case CodeStatusActive, CodeStatusUsed, CodeStatusExpired, CodeStatusCancelled:
		return st, nil
	}
	return "", ErrInvalidFilter
}

// Code описывает одноразовый код пользователя на предложение.
// Условия скидки копируются из предложения при выдаче и больше не меняются.
type Code struct {
	ID             uuid.UUID
	Code           string
	OfferID        int64
	UserID         int64
	PartnerID      int64
	Type           CodeType
	ReductionType  ReductionType
	ReductionValue decimal.Decimal
	Status         CodeStatus
	GeneratedAt    time.Time
	ExpiresAt      time.Time
	UsedAt         *time.Time
}

// EffectiveStatus возвращает статус с учётом истечения срока: активный код с
// прошедшим ExpiresAt считается истёкшим, даже если в хранилище он ещё active.
func (c *Code) EffectiveStatus(now time.Time) CodeStatus {
	if c.Status == CodeStatusActive && now.After(c.ExpiresAt) {
		return CodeStatusExpired
	}
	return c.Status
}

// IsValid сообщает, может ли код быть погашен в момент now.
func (c *Code) IsValid(now time.Time) bool {
	return c.EffectiveStatus(now) == CodeStatusActive
}

// CheckRedeemable возвращает причину, по которой код нельзя погасить, либо nil.
func (c *Code) CheckRedeemable(now time.Time) error {
	switch c.EffectiveStatus(now) {
	case CodeStatusActive:
		return nil
	case CodeStatusUsed:
		return ErrCodeAlreadyUsed
	case CodeStatusCancelled:
		return ErrCodeCancelled
	default:
		return ErrCodeExpired
	}
}

// CodeFilter задаёт фильтры выборки кодов пользователя.
type CodeFilter struct {
	Status  CodeStatus
	OfferID *int64
	Limit   int
	Offset  int
}

const (
	defaultCodeListLimit = 20
	maxCodeListLimit     = 200
)

// Normalize приводит параметры постраничной выборки к допустимым значениям.
func (f CodeFilter) Normalize() CodeFilter {
	if f.Limit <= 0 {
		f.Limit = defaultCodeListLimit
	}
	if f.Limit > maxCodeListLimit {
		f.Limit = maxCodeListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
