package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/clubperks/internal/model"
)

type codeResponse struct {
	Code           string      `json:"code"`
	CodeType       string      `json:"code_type"`
	OfferID        int64       `json:"offer_id"`
	Status         string      `json:"status"`
	ReductionType  string      `json:"reduction_type"`
	ReductionValue json.Number `json:"reduction_value"`
	GeneratedAt    string      `json:"generated_at"`
	ExpiresAt      string      `json:"expires_at"`
	UsedAt         *string     `json:"used_at,omitempty"`
}

func newCodeResponse(c *model.Code) codeResponse {
	resp := codeResponse{
		Code:           c.Code,
		CodeType:       string(c.Type),
		OfferID:        c.OfferID,
		Status:         string(c.Status),
		ReductionType:  string(c.ReductionType),
		ReductionValue: money(c.ReductionValue),
		GeneratedAt:    c.GeneratedAt.Format(time.RFC3339),
		ExpiresAt:      c.ExpiresAt.Format(time.RFC3339),
	}
	if c.UsedAt != nil {
		v := c.UsedAt.Format(time.RFC3339)
		resp.UsedAt = &v
	}
	return resp
}

type redemptionResponse struct {
	Code                string      `json:"code"`
	OriginalAmount      json.Number `json:"original_amount"`
	DiscountAmount      json.Number `json:"discount_amount"`
	FinalAmount         json.Number `json:"final_amount"`
	LoyaltyPointsEarned int64       `json:"loyalty_points_earned"`
	UsedAt              string      `json:"used_at"`
}

func newRedemptionResponse(r *model.Redemption) redemptionResponse {
	return redemptionResponse{
		Code:                r.Code,
		OriginalAmount:      money(r.OriginalAmount),
		DiscountAmount:      money(r.DiscountAmount),
		FinalAmount:         money(r.FinalAmount),
		LoyaltyPointsEarned: r.LoyaltyPoints,
		UsedAt:              r.UsedAt.Format(time.RFC3339),
	}
}

// money выводит сумму числом с двумя знаками после запятой.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
