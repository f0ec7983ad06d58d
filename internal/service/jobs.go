package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/metrics"
	"github.com/mmeshcher/clubperks/internal/model"
)

// SweepExpiredCodes сохраняет статус expired у просроченных активных кодов.
// Корректность проверок от этого не зависит: срок учитывается при каждом чтении.
func (s *Service) SweepExpiredCodes(ctx context.Context) error {
	n, err := s.repo.ExpireCodes(ctx, s.now())
	if err != nil {
		return err
	}

	if n > 0 {
		metrics.CodesExpired.Add(float64(n))
		s.logger.Info("expired codes swept", zap.Int64("count", n))
	}
	return nil
}

// RelayEvents отправляет накопленные события outbox издателю. Возвращает
// число отправленных событий. Без издателя события остаются в outbox.
func (s *Service) RelayEvents(ctx context.Context) (int, error) {
	if s.publisher == nil {
		return 0, nil
	}

	total := 0
	for {
		n, err := s.repo.RelayEvents(ctx, relayBatchSize, func(ctx context.Context, events []model.Event) error {
			return s.publisher.Publish(ctx, events)
		})
		total += n
		if n > 0 {
			metrics.EventsPublished.Add(float64(n))
		}
		if err != nil {
			return total, fmt.Errorf("relay events: %w", err)
		}
		if n < relayBatchSize {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}
