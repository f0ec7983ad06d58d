// Package model содержит доменные сущности сервиса клубных привилегий.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReductionType описывает способ расчёта скидки по предложению.
type ReductionType string

const (
	ReductionPercentage ReductionType = "percentage"
	ReductionFixed      ReductionType = "fixed"
)

// Valid сообщает, известен ли тип скидки.
func (t ReductionType) Valid() bool {
	return t == ReductionPercentage || t == ReductionFixed
}

// OfferStatus описывает статус предложения в каталоге.
type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusInactive OfferStatus = "inactive"
	OfferStatusExpired  OfferStatus = "expired"
)

// Valid сообщает, известен ли статус предложения.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferStatusActive, OfferStatusInactive, OfferStatusExpired:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// MaxAmount ограничивает денежные суммы сверху, чтобы копейки и баллы
// помещались в int64 с запасом для накопления баланса.
var MaxAmount = decimal.New(1, 12)

// Offer описывает предложение партнёра. Условия принадлежат внешнему каталогу,
// сервис изменяет только счётчик выданных кодов StockUsed.
type Offer struct {
	ID             int64
	PartnerID      int64
	ReductionType  ReductionType
	ReductionValue decimal.Decimal
	StockAvailable *int64
	StockUsed      int64
	ValidFrom      time.Time
	ValidUntil     *time.Time
	Status         OfferStatus
}

// Validate проверяет определение предложения перед сохранением.
func (o *Offer) Validate() error {
	switch {
	case o.ID <= 0:
		return ErrInvalidOffer
	case !o.ReductionType.Valid():
		return ErrInvalidOffer
	case o.ReductionValue.IsNegative():
		return ErrInvalidOffer
	case o.ReductionType == ReductionPercentage && o.ReductionValue.GreaterThan(hundred):
		return ErrInvalidOffer
	case o.ReductionValue.GreaterThan(MaxAmount):
		return ErrInvalidOffer
	case !o.ReductionValue.Equal(o.ReductionValue.Round(2)):
		return ErrInvalidOffer
	case o.StockAvailable != nil && *o.StockAvailable < 0:
		return ErrInvalidOffer
	case !o.Status.Valid():
		return ErrInvalidOffer
	case o.ValidUntil != nil && o.ValidUntil.Before(o.ValidFrom):
		return ErrInvalidOffer
	}
	return nil
}

// CheckIssuable возвращает причину, по которой код для предложения выдать нельзя,
// либо nil.
func (o *Offer) CheckIssuable(now time.Time) error {
	switch o.Status {
	case OfferStatusActive:
	case OfferStatusExpired:
		return ErrOfferExpired
	default:
		return ErrOfferInactive
	}

	if now.Before(o.ValidFrom) {
		return ErrOfferNotStarted
	}
	if o.ValidUntil != nil && now.After(*o.ValidUntil) {
		return ErrOfferExpired
	}
	if o.StockAvailable != nil && o.StockUsed >= *o.StockAvailable {
		return ErrOutOfStock
	}
	return nil
}

// CodeExpiry вычисляет срок действия кода, выданного в момент now: конец периода
// действия предложения, а для бессрочных предложений now+ttl.
func (o *Offer) CodeExpiry(now time.Time, ttl time.Duration) time.Time {
	if o.ValidUntil != nil {
		return *o.ValidUntil
	}
	return now.Add(ttl)
}

// Stock содержит производные показатели остатка по предложению.
// Для предложений без лимита Available, Remaining и Percentage равны nil.
type Stock struct {
	OfferID    int64    `json:"offer_id"`
	Available  *int64   `json:"stock_available"`
	Used       int64    `json:"stock_used"`
	Remaining  *int64   `json:"stock_remaining"`
	Percentage *float64 `json:"stock_percentage"`
}

// Stock пересчитывает остаток по текущему значению StockUsed.
func (o *Offer) Stock() Stock {
	s := Stock{
		OfferID: o.ID,
		Used:    o.StockUsed,
	}
	if o.StockAvailable == nil {
		return s
	}

	available := *o.StockAvailable
	remaining := available - o.StockUsed
	if remaining < 0 {
		remaining = 0
	}

	var pct float64
	if available > 0 {
		pct = float64(remaining) / float64(available) * 100
	}

	s.Available = &available
	s.Remaining = &remaining
	s.Percentage = &pct
	return s
}
