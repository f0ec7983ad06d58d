// Package events описывает события сервиса и их доставку в Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/clubperks/internal/model"
)

const (
	TypeRedemptionCompleted = "redemption.completed"
	TypeCodeCancelled       = "code.cancelled"

	// HeaderEventType задаёт заголовок записи Kafka с типом события.
	HeaderEventType = "x-event-type"
)

// RedemptionCompleted описывает погашение кода с начислением баллов.
// Внешний учёт баллов сопоставляет начисление по RedemptionID.
type RedemptionCompleted struct {
	SchemaVersion  int       `json:"schema_version"`
	RedemptionID   string    `json:"redemption_id"`
	Code           string    `json:"code"`
	OfferID        int64     `json:"offer_id"`
	UserID         int64     `json:"user_id"`
	PartnerID      int64     `json:"partner_id"`
	OriginalAmount string    `json:"original_amount"`
	DiscountAmount string    `json:"discount_amount"`
	FinalAmount    string    `json:"final_amount"`
	LoyaltyPoints  int64     `json:"loyalty_points"`
	UsedAt         time.Time `json:"used_at"`
}

// CodeCancelled описывает административную отмену кода.
type CodeCancelled struct {
	SchemaVersion int       `json:"schema_version"`
	Code          string    `json:"code"`
	OfferID       int64     `json:"offer_id"`
	UserID        int64     `json:"user_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

// NewRedemptionCompleted строит событие outbox для погашения.
func NewRedemptionCompleted(topic string, r *model.Redemption) (model.Event, error) {
	payload, err := json.Marshal(RedemptionCompleted{
		SchemaVersion:  1,
		RedemptionID:   r.ID.String(),
		Code:           r.Code,
		OfferID:        r.OfferID,
		UserID:         r.UserID,
		PartnerID:      r.PartnerID,
		OriginalAmount: r.OriginalAmount.StringFixed(2),
		DiscountAmount: r.DiscountAmount.StringFixed(2),
		FinalAmount:    r.FinalAmount.StringFixed(2),
		LoyaltyPoints:  r.LoyaltyPoints,
		UsedAt:         r.UsedAt.UTC(),
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("marshal redemption event: %w", err)
	}

	return model.Event{
		ID:        uuid.New(),
		Topic:     topic,
		Key:       strconv.FormatInt(r.UserID, 10),
		Type:      TypeRedemptionCompleted,
		Payload:   payload,
		CreatedAt: r.UsedAt,
	}, nil
}

// NewCodeCancelled строит событие outbox для отмены кода.
func NewCodeCancelled(topic string, c *model.Code, at time.Time) (model.Event, error) {
	payload, err := json.Marshal(CodeCancelled{
		SchemaVersion: 1,
		Code:          c.Code,
		OfferID:       c.OfferID,
		UserID:        c.UserID,
		CancelledAt:   at.UTC(),
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("marshal cancel event: %w", err)
	}

	return model.Event{
		ID:        uuid.New(),
		Topic:     topic,
		Key:       strconv.FormatInt(c.UserID, 10),
		Type:      TypeCodeCancelled,
		Payload:   payload,
		CreatedAt: at,
	}, nil
}
