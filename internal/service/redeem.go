package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/events"
	"github.com/mmeshcher/clubperks/internal/metrics"
	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/pricing"
	"github.com/mmeshcher/clubperks/internal/validation"
)

// ValidationResult содержит результат проверки кода.
type ValidationResult struct {
	Valid bool        `json:"valid"`
	Code  *model.Code `json:"code"`
}

// Validate проверяет код без изменения состояния. partnerID, отличный от
// нуля, скрывает коды других партнёров.
func (s *Service) Validate(ctx context.Context, code string, partnerID int64) (*ValidationResult, error) {
	code, err := normalize(code)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if partnerID != 0 && c.PartnerID != partnerID {
		return nil, model.ErrCodeNotFound
	}

	now := s.now()
	c.Status = c.EffectiveStatus(now)
	return &ValidationResult{Valid: c.IsValid(now), Code: c}, nil
}

// Redeem гасит код на сумму amount и начисляет баллы лояльности. Проверка
// кода повторяется под блокировкой строки, поэтому из параллельных вызовов
// успешен ровно один.
func (s *Service) Redeem(ctx context.Context, code string, amount decimal.Decimal, partnerID int64) (*model.Redemption, error) {
	start := time.Now()

	red, err := s.redeem(ctx, code, amount, partnerID)
	if err != nil {
		metrics.ObserveRedemption(model.Reason(err), 0, time.Since(start))
		return nil, err
	}

	metrics.ObserveRedemption("ok", red.LoyaltyPoints, time.Since(start))
	s.logger.Info("code redeemed",
		zap.String("code", red.Code),
		zap.Int64("user_id", red.UserID),
		zap.String("final_amount", red.FinalAmount.StringFixed(2)),
		zap.Int64("loyalty_points", red.LoyaltyPoints),
	)
	return red, nil
}

func (s *Service) redeem(ctx context.Context, code string, amount decimal.Decimal, partnerID int64) (*model.Redemption, error) {
	if err := pricing.CheckAmount(amount); err != nil {
		return nil, err
	}

	code, err := normalize(code)
	if err != nil {
		return nil, err
	}

	return s.repo.RedeemCode(ctx, code, partnerID, func(c *model.Code) (*model.Redemption, []model.Event, error) {
		now := s.now()
		if err := c.CheckRedeemable(now); err != nil {
			return nil, nil, err
		}

		b := pricing.Apply(c.ReductionType, c.ReductionValue, amount)
		red := &model.Redemption{
			ID:             uuid.New(),
			CodeID:         c.ID,
			Code:           c.Code,
			OfferID:        c.OfferID,
			UserID:         c.UserID,
			PartnerID:      c.PartnerID,
			OriginalAmount: b.Original,
			DiscountAmount: b.Discount,
			FinalAmount:    b.Final,
			LoyaltyPoints:  b.Points,
			UsedAt:         now,
		}

		ev, err := events.NewRedemptionCompleted(s.opts.EventTopic, red)
		if err != nil {
			return nil, nil, fmt.Errorf("build event: %w", err)
		}
		return red, []model.Event{ev}, nil
	})
}

// GetRedemption возвращает сохранённое погашение кода.
func (s *Service) GetRedemption(ctx context.Context, code string, partnerID int64) (*model.Redemption, error) {
	code, err := normalize(code)
	if err != nil {
		return nil, err
	}

	red, err := s.repo.GetRedemption(ctx, code)
	if err != nil {
		return nil, err
	}
	if partnerID != 0 && red.PartnerID != partnerID {
		return nil, model.ErrCodeNotFound
	}
	return red, nil
}

// Cancel отменяет активный код. Использованные, отменённые и истёкшие коды
// отменить нельзя.
func (s *Service) Cancel(ctx context.Context, code string) (*model.Code, error) {
	code, err := normalize(code)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.CancelCode(ctx, code, func(c *model.Code) ([]model.Event, error) {
		now := s.now()
		if err := c.CheckRedeemable(now); err != nil {
			return nil, err
		}

		ev, err := events.NewCodeCancelled(s.opts.EventTopic, c, now)
		if err != nil {
			return nil, fmt.Errorf("build event: %w", err)
		}
		return []model.Event{ev}, nil
	})
	if err != nil {
		if !errors.Is(err, model.ErrState) && !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("cancel code failed", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("code cancelled", zap.String("code", c.Code))
	return c, nil
}

func normalize(code string) (string, error) {
	code = validation.NormalizeCode(code)
	if !validation.IsValidCode(code) {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidCode, code)
	}
	return code, nil
}
