package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clubperks/internal/model"
	"github.com/mmeshcher/clubperks/internal/pricing"
)

const codeColumns = `id, code, offer_id, user_id, partner_id, code_type, reduction_type,
	reduction_value, status, generated_at, expires_at, used_at`

const codeUniqueConstraint = "codes_code_key"

const defaultIssueAttempts = 5

func scanCode(row pgx.Row) (*model.Code, error) {
	var (
		c              model.Code
		codeType       string
		reductionType  string
		reductionValue int64
		status         string
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.OfferID,
		&c.UserID,
		&c.PartnerID,
		&codeType,
		&reductionType,
		&reductionValue,
		&status,
		&c.GeneratedAt,
		&c.ExpiresAt,
		&c.UsedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Type = model.CodeType(codeType)
	c.ReductionType = model.ReductionType(reductionType)
	c.ReductionValue = pricing.FromCents(reductionValue)
	c.Status = model.CodeStatus(status)
	return &c, nil
}

// IssueParams описывает запрос на выдачу кода.
type IssueParams struct {
	OfferID int64
	UserID  int64
	Type    model.CodeType
	Now     time.Time
	// TTL задаёт срок действия кода для предложений без даты окончания.
	TTL time.Duration
	// NewCode возвращает очередную случайную строку кода.
	NewCode func(model.CodeType) string
	// MaxAttempts ограничивает число попыток при совпадении строки кода.
	MaxAttempts int
}

// IssueCode выдаёт код в одной транзакции с резервированием единицы остатка.
// Уникальность строки обеспечивается ограничением codes_code_key: при
// совпадении вставка откатывается до точки сохранения и повторяется с новой
// строкой. Если попытки исчерпаны, откатывается и резерв остатка.
func (r *PostgresRepository) IssueCode(ctx context.Context, p IssueParams) (*model.Code, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultIssueAttempts
	}

	tx, err := r.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	offer, err := reserveStock(ctx, tx, p.OfferID, p.Now)
	if err != nil {
		return nil, err
	}

	code := &model.Code{
		ID:             uuid.New(),
		OfferID:        offer.ID,
		UserID:         p.UserID,
		PartnerID:      offer.PartnerID,
		Type:           p.Type,
		ReductionType:  offer.ReductionType,
		ReductionValue: offer.ReductionValue,
		Status:         model.CodeStatusActive,
		GeneratedAt:    p.Now,
		ExpiresAt:      offer.CodeExpiry(p.Now, p.TTL),
	}

	inserted := false
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		code.Code = p.NewCode(p.Type)

		err = insertCode(ctx, tx, code)
		if err == nil {
			inserted = true
			break
		}
		if !isUniqueViolation(err, codeUniqueConstraint) {
			return nil, classify("insert code", err)
		}
	}
	if !inserted {
		return nil, model.ErrCodeSpaceExhausted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit tx", err)
	}

	return code, nil
}

func insertCode(ctx context.Context, tx pgx.Tx, c *model.Code) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}

	_, err = sp.Exec(ctx,
		`INSERT INTO codes (id, code, offer_id, user_id, partner_id, code_type, reduction_type,
		                    reduction_value, status, generated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID,
		c.Code,
		c.OfferID,
		c.UserID,
		c.PartnerID,
		string(c.Type),
		string(c.ReductionType),
		pricing.ToCents(c.ReductionValue),
		string(c.Status),
		c.GeneratedAt,
		c.ExpiresAt,
	)
	if err != nil {
		_ = sp.Rollback(ctx)
		return err
	}

	return sp.Commit(ctx)
}

// GetCode возвращает код по строке без блокировки.
func (r *PostgresRepository) GetCode(ctx context.Context, code string) (*model.Code, error) {
	var c *model.Code
	err := r.withRetry(ctx, func() error {
		var err error
		c, err = scanCode(r.pool.QueryRow(ctx,
			`SELECT `+codeColumns+` FROM codes WHERE code = $1`, code))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFound
		}
		return nil, fmt.Errorf("get code: %w", err)
	}
	return c, nil
}

// ListUserCodes возвращает коды пользователя, новые первыми. Фильтр по статусу
// учитывает истечение срока на момент now.
func (r *PostgresRepository) ListUserCodes(ctx context.Context, userID int64, f model.CodeFilter, now time.Time) ([]model.Code, error) {
	f = f.Normalize()

	args := []any{userID}
	conditions := []string{"user_id = $1"}

	switch f.Status {
	case "":
	case model.CodeStatusActive:
		args = append(args, now)
		conditions = append(conditions, fmt.Sprintf("status = 'active' AND expires_at >= $%d", len(args)))
	case model.CodeStatusExpired:
		args = append(args, now)
		conditions = append(conditions, fmt.Sprintf("(status = 'expired' OR (status = 'active' AND expires_at < $%d))", len(args)))
	default:
		args = append(args, string(f.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if f.OfferID != nil {
		args = append(args, *f.OfferID)
		conditions = append(conditions, fmt.Sprintf("offer_id = $%d", len(args)))
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + codeColumns + ` FROM codes WHERE ` + strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY generated_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var res []model.Code
	err := r.withRetry(ctx, func() error {
		res = nil

		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCode(rows)
			if err != nil {
				return err
			}
			res = append(res, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select codes: %w", err)
	}

	return res, nil
}

// CancelFunc проверяет заблокированный код перед отменой и возвращает события
// для записи в outbox.
type CancelFunc func(c *model.Code) ([]model.Event, error)

// CancelCode переводит код в статус cancelled под блокировкой строки.
func (r *PostgresRepository) CancelCode(ctx context.Context, code string, check CancelFunc) (*model.Code, error) {
	tx, err := r.beginLocked(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	c, err := lockCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	events, err := check(c)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE codes SET status = 'cancelled' WHERE id = $1 AND status = 'active'`, c.ID)
	if err != nil {
		return nil, classify("cancel code", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, fmt.Errorf("cancel code: %w", model.ErrConcurrency)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("commit tx", err)
	}

	c.Status = model.CodeStatusCancelled
	return c, nil
}

func lockCode(ctx context.Context, tx pgx.Tx, code string) (*model.Code, error) {
	c, err := scanCode(tx.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM codes WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCodeNotFound
		}
		return nil, classify("lock code", err)
	}
	return c, nil
}

// ExpireCodes сохраняет статус expired для активных кодов с истёкшим сроком.
// Носит справочный характер: проверки срока выполняются при каждом чтении.
func (r *PostgresRepository) ExpireCodes(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE codes SET status = 'expired' WHERE status = 'active' AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
