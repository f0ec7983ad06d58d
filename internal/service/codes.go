package service

import (
	"context"

	"github.com/mmeshcher/clubperks/internal/model"
)

const defaultLedgerLimit = 50

// ListUserCodes возвращает коды пользователя. Статус каждого кода
// пересчитывается с учётом срока действия.
func (s *Service) ListUserCodes(ctx context.Context, userID int64, f model.CodeFilter) ([]model.Code, error) {
	now := s.now()

	codes, err := s.repo.ListUserCodes(ctx, userID, f.Normalize(), now)
	if err != nil {
		return nil, err
	}

	for i := range codes {
		codes[i].Status = codes[i].EffectiveStatus(now)
	}
	return codes, nil
}

// GetBalance возвращает баланс баллов лояльности пользователя.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	points, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{UserID: userID, Points: points}, nil
}

// ListLedger возвращает историю начислений баллов.
func (s *Service) ListLedger(ctx context.Context, userID int64) ([]model.LedgerEntry, error) {
	return s.repo.ListLedger(ctx, userID, defaultLedgerLimit)
}
