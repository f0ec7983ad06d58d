package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/clubperks/internal/model"
)

func insertEvents(ctx context.Context, tx pgx.Tx, events []model.Event) error {
	for _, e := range events {
		_, err := tx.Exec(ctx,
			`INSERT INTO outbox (id, topic, event_key, event_type, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.Topic, e.Key, e.Type, string(e.Payload), e.CreatedAt,
		)
		if err != nil {
			return classify("insert outbox event", err)
		}
	}
	return nil
}

// PublishFunc доставляет пачку событий во внешнюю систему.
type PublishFunc func(ctx context.Context, events []model.Event) error

// RelayEvents выбирает до limit неотправленных событий, передаёт их в publish и
// помечает отправленными. Строки блокируются с SKIP LOCKED, поэтому несколько
// экземпляров сервиса не отправляют одно событие одновременно.
func (r *PostgresRepository) RelayEvents(ctx context.Context, limit int, publish PublishFunc) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id, topic, event_key, event_type, payload::text, created_at
		   FROM outbox
		  WHERE published_at IS NULL
		  ORDER BY created_at
		  LIMIT $1
		  FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("select outbox: %w", err)
	}

	var (
		events []model.Event
		ids    []uuid.UUID
	)
	for rows.Next() {
		var (
			e       model.Event
			payload string
		)
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Type, &payload, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = []byte(payload)
		events = append(events, e)
		ids = append(ids, e.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows error: %w", err)
	}

	if len(events) == 0 {
		return 0, nil
	}

	if err := publish(ctx, events); err != nil {
		return 0, fmt.Errorf("publish events: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE outbox SET published_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return len(events), nil
}
