package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/pricing"
)

// RedeemFunc выполняется под блокировкой строки кода: проверяет код,
// рассчитывает погашение и возвращает события для outbox.
type RedeemFunc func(c *model.Code) (*model.Redemption, []model.Event, error)

// RedeemCode гасит код в одной транзакции: блокирует строку кода, повторно
// проверяет её через apply, переводит код в used, сохраняет погашение,
// начисляет баллы и пишет события. partnerID, отличный от нуля, ограничивает
// погашение кодами этого партнёра; чужой код считается ненайденным.
func (r *PostgresRepository) RedeemCode(ctx context.Context, code string, partnerID int64, apply RedeemFunc) (*model.Redemption, error) {
	tx, err := r.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if partnerID != 0 && c.PartnerID != partnerID {
		return nil, model.ErrCodeNotFound
	}

	red, events, err := apply(c)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE codes SET status = 'used', used_at = $2 WHERE id = $1 AND status = 'active'`,
		c.ID, red.UsedAt,
	)
	if err != nil {
		return nil, classify("mark code used", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, model.ErrCodeAlreadyUsed
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO redemptions (id, code_id, user_id, original_amount, discount_amount,
		                          final_amount, loyalty_points, used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		red.ID,
		c.ID,
		c.UserID,
		pricing.ToCents(red.OriginalAmount),
		pricing.ToCents(red.DiscountAmount),
		pricing.ToCents(red.FinalAmount),
		red.LoyaltyPoints,
		red.UsedAt,
	)
	if err != nil {
		return nil, classify("insert redemption", err)
	}

	if err := creditPoints(ctx, tx, red); err != nil {
		return nil, err
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit tx", err)
	}

	return red, nil
}

// creditPoints записывает начисление в журнал и увеличивает баланс пользователя.
func creditPoints(ctx context.Context, tx pgx.Tx, red *model.Redemption) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO loyalty_ledger (id, user_id, points, redemption_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), red.UserID, red.LoyaltyPoints, red.ID, red.UsedAt,
	)
	if err != nil {
		return classify("insert ledger entry", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO loyalty_balances (user_id, points, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		    SET points = loyalty_balances.points + EXCLUDED.points,
		        updated_at = EXCLUDED.updated_at`,
		red.UserID, red.LoyaltyPoints, red.UsedAt,
	)
	if err != nil {
		return classify("credit balance", err)
	}

	return nil
}

// GetRedemption возвращает погашение кода.
func (r *PostgresRepository) GetRedemption(ctx context.Context, code string) (*model.Redemption, error) {
	var (
		red                       model.Redemption
		original, discount, final int64
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT r.id, r.code_id, c.code, c.offer_id, r.user_id, c.partner_id,
			        r.original_amount, r.discount_amount, r.final_amount, r.loyalty_points, r.used_at
			   FROM redemptions r
			   JOIN codes c ON c.id = r.code_id
			  WHERE c.code = $1`,
			code,
		).Scan(
			&red.ID, &red.CodeID, &red.Code, &red.OfferID, &red.UserID, &red.PartnerID,
			&original, &discount, &final, &red.LoyaltyPoints, &red.UsedAt,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}

	red.OriginalAmount = pricing.FromCents(original)
	red.DiscountAmount = pricing.FromCents(discount)
	red.FinalAmount = pricing.FromCents(final)
	return &red, nil
}

// GetBalance возвращает баланс баллов пользователя.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var points int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COALESCE((SELECT points FROM loyalty_balances WHERE user_id = $1), 0)`,
			userID,
		).Scan(&points)
	})
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return points, nil
}

// ListLedger возвращает историю начислений пользователя, новые первыми.
func (r *PostgresRepository) ListLedger(ctx context.Context, userID int64, limit int) ([]model.LedgerEntry, error) {
	var res []model.LedgerEntry
	err := r.withRetry(ctx, func() error {
		res = nil

		rows, err := r.pool.Query(ctx,
			`SELECT l.id, l.user_id, l.points, l.redemption_id, c.code, l.created_at
			   FROM loyalty_ledger l
			   JOIN redemptions r ON r.id = l.redemption_id
			   JOIN codes c ON c.id = r.code_id
			  WHERE l.user_id = $1
			  ORDER BY l.created_at DESC
			  LIMIT $2`,
			userID, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e model.LedgerEntry
			if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.RedemptionID, &e.Code, &e.CreatedAt); err != nil {
				return err
			}
			res = append(res, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select ledger: %w", err)
	}

	return res, nil
}
