package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Redemption описывает факт погашения кода. Создаётся ровно один раз на код.
type Redemption struct {
	ID             uuid.UUID
	CodeID         uuid.UUID
	Code           string
	OfferID        int64
	UserID         int64
	PartnerID      int64
	OriginalAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	LoyaltyPoints  int64
	UsedAt         time.Time
}

// LedgerEntry описывает начисление баллов лояльности за погашение.
type LedgerEntry struct {
	ID           uuid.UUID
	UserID       int64
	Points       int64
	RedemptionID uuid.UUID
	Code         string
	CreatedAt    time.Time
}

// Balance содержит текущий баланс баллов пользователя.
type Balance struct {
	UserID int64 `json:"user_id"`
	Points int64 `json:"points"`
}

// MembershipTier описывает уровень членства пользователя в клубе.
type MembershipTier string

const (
	TierFree    MembershipTier = "free"
	TierPremium MembershipTier = "premium"
	TierVIP     MembershipTier = "vip"
)

// CanGenerateCodes сообщает, разрешена ли уровню выдача кодов.
// Бесплатный и неизвестные уровни исключены.
func (t MembershipTier) CanGenerateCodes() bool {
	return t == TierPremium || t == TierVIP
}

// Role описывает роль вызывающей стороны.
type Role string

const (
	RoleMember  Role = "member"
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

// Event описывает событие для доставки во внешние системы через outbox.
type Event struct {
	ID        uuid.UUID
	Topic     string
	Key       string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}
