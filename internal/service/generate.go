package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/metrics"
	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/repository"
)

// Generate выдаёт пользователю новый код по предложению offerID. Остаток
// предложения уменьшается в той же транзакции, что и запись кода.
func (s *Service) Generate(ctx context.Context, userID int64, tier model.MembershipTier, offerID int64, codeType string) (*model.Code, error) {
	t, err := model.ParseCodeType(codeType)
	if err != nil {
		metrics.ObserveIssue(codeType, model.Reason(err))
		return nil, err
	}

	if !tier.CanGenerateCodes() {
		metrics.ObserveIssue(string(t), model.Reason(model.ErrTierNotEligible))
		return nil, fmt.Errorf("%w: tier %q", model.ErrTierNotEligible, tier)
	}

	code, err := s.repo.IssueCode(ctx, repository.IssueParams{
		OfferID:     offerID,
		UserID:      userID,
		Type:        t,
		Now:         s.now(),
		TTL:         s.opts.CodeTTL,
		NewCode:     s.newCode,
		MaxAttempts: maxIssueAttempts,
	})
	if err != nil {
		metrics.ObserveIssue(string(t), model.Reason(err))
		if errors.Is(err, model.ErrCodeSpaceExhausted) {
			s.logger.Error("code generation exhausted attempts",
				zap.Int64("offer_id", offerID),
				zap.String("code_type", string(t)),
			)
		}
		return nil, err
	}

	metrics.ObserveIssue(string(t), "")
	s.logger.Debug("code issued",
		zap.String("code", code.Code),
		zap.Int64("offer_id", offerID),
		zap.Int64("user_id", userID),
	)
	return code, nil
}

// OfferStock возвращает текущий остаток предложения.
func (s *Service) OfferStock(ctx context.Context, offerID int64) (model.Stock, error) {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return model.Stock{}, err
	}
	return offer.Stock(), nil
}

// UpsertOffer проверяет и сохраняет условия предложения. Счётчик выданных
// кодов при этом не меняется.
func (s *Service) UpsertOffer(ctx context.Context, o *model.Offer) error {
	if err := o.Validate(); err != nil {
		return err
	}
	return s.repo.UpsertOffer(ctx, o)
}
