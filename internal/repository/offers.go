package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/pricing"
)

const offerColumns = `id, partner_id, reduction_type, reduction_value, stock_available,
	stock_used, valid_from, valid_until, status`

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var (
		o              model.Offer
		reductionType  string
		reductionValue int64
		status         string
	)
	err := row.Scan(
		&o.ID,
		&o.PartnerID,
		&reductionType,
		&reductionValue,
		&o.StockAvailable,
		&o.StockUsed,
		&o.ValidFrom,
		&o.ValidUntil,
		&status,
	)
	if err != nil {
		return nil, err
	}

	o.ReductionType = model.ReductionType(reductionType)
	o.ReductionValue = pricing.FromCents(reductionValue)
	o.Status = model.OfferStatus(status)
	return &o, nil
}

// UpsertOffer сохраняет условия предложения из каталога. Счётчик выданных кодов
// при обновлении не меняется.
func (r *PostgresRepository) UpsertOffer(ctx context.Context, o *model.Offer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO offers (id, partner_id, reduction_type, reduction_value, stock_available,
		                     valid_from, valid_until, status, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		 ON CONFLICT (id) DO UPDATE
		    SET partner_id      = EXCLUDED.partner_id,
		        reduction_type  = EXCLUDED.reduction_type,
		        reduction_value = EXCLUDED.reduction_value,
		        stock_available = EXCLUDED.stock_available,
		        valid_from      = EXCLUDED.valid_from,
		        valid_until     = EXCLUDED.valid_until,
		        status          = EXCLUDED.status,
		        updated_at      = now()`,
		o.ID,
		o.PartnerID,
		string(o.ReductionType),
		pricing.ToCents(o.ReductionValue),
		o.StockAvailable,
		o.ValidFrom,
		o.ValidUntil,
		string(o.Status),
	)
	if err != nil {
		if pgCode(err) == pgerrcode.CheckViolation {
			return fmt.Errorf("upsert offer %d: %w", o.ID, model.ErrStockBelowIssued)
		}
		return fmt.Errorf("upsert offer: %w", err)
	}
	return nil
}

// GetOffer возвращает предложение по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	var offer *model.Offer
	err := r.withRetry(ctx, func() error {
		var err error
		offer, err = scanOffer(r.pool.QueryRow(ctx,
			`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOfferNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return offer, nil
}

// reserveStock увеличивает stock_used на единицу, если предложение доступно для
// выдачи в момент now. Проверка лимита выполняется в том же UPDATE, поэтому
// параллельные выдачи сериализуются на строке предложения.
func reserveStock(ctx context.Context, tx pgx.Tx, offerID int64, now time.Time) (*model.Offer, error) {
	offer, err := scanOffer(tx.QueryRow(ctx,
		`UPDATE offers
		    SET stock_used = stock_used + 1
		  WHERE id = $1
		    AND status = 'active'
		    AND valid_from <= $2
		    AND (valid_until IS NULL OR valid_until >= $2)
		    AND (stock_available IS NULL OR stock_used < stock_available)
		 RETURNING `+offerColumns,
		offerID, now,
	))
	if err == nil {
		return offer, nil
	}

	if pgCode(err) == pgerrcode.CheckViolation {
		return nil, model.ErrOutOfStock
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify("reserve stock", err)
	}

	// Ни одна строка не подошла: перечитываем предложение, чтобы назвать причину.
	current, err := scanOffer(tx.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, offerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOfferNotFound
		}
		return nil, classify("get offer", err)
	}

	if err := current.CheckIssuable(now); err != nil {
		return nil, err
	}

	return nil, fmt.Errorf("reserve stock: %w", model.ErrConcurrency)
}
