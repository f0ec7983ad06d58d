package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/clubperks/internal/model"
)

// StartCatalogSync запускает фоновую синхронизацию условий предложений с
// внешним каталогом. Без клиента каталога ничего не делает.
func (s *Service) StartCatalogSync(ctx context.Context) {
	if s.catalogClient == nil {
		return
	}

	go func() {
		s.syncCatalog(ctx)

		ticker := time.NewTicker(s.opts.CatalogInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncCatalog(ctx)
			}
		}
	}()
}

func (s *Service) syncCatalog(ctx context.Context) {
	defs, statusCode, retryAfter, err := s.catalogClient.FetchOffers(ctx)
	if err != nil {
		s.logger.Warn("catalog fetch failed", zap.Int("status", statusCode), zap.Error(err))
		return
	}

	if statusCode == http.StatusTooManyRequests {
		if retryAfter > 0 {
			s.logger.Info("catalog rate limited", zap.Duration("retry_after", retryAfter))
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		return
	}

	var synced int
	for _, d := range defs {
		offer := d.Offer()
		if err := s.UpsertOffer(ctx, offer); err != nil {
			if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrState) {
				s.logger.Warn("catalog offer skipped", zap.Int64("offer_id", d.ID), zap.Error(err))
				continue
			}
			s.logger.Error("catalog offer upsert failed", zap.Int64("offer_id", d.ID), zap.Error(err))
			return
		}
		synced++
	}

	if synced > 0 {
		s.logger.Debug("catalog synced", zap.Int("offers", synced))
	}
}
