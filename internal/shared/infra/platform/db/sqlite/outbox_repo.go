package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davicafu/postlab/internal/shared/domain"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const outboxTable = "outbox"

var outboxSchema = []string{
	`CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (processed, created_at)`,
}

// InitOutbox crea la tabla outbox si no existe.
func InitOutbox(ctx context.Context, db *sql.DB) error {
	return ExecAll(ctx, db, outboxSchema...)
}

// InsertOutboxTx guarda el evento dentro de la transacción del agregado.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, evt domain.OutboxEvent) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	query, args, err := Dialect.Insert(outboxTable).Prepared(true).Rows(goqu.Record{
		"id":             evt.ID.String(),
		"aggregate_type": evt.AggregateType,
		"aggregate_id":   evt.AggregateID,
		"event_type":     evt.EventType,
		"payload":        string(payload),
		"created_at":     evt.CreatedAt.UnixMilli(),
		"processed":      0,
	}).ToSQL()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// OutboxRepoSQLite implementa domain.OutboxRepository.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

func (r *OutboxRepoSQLite) FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query, args, err := Dialect.From(outboxTable).Prepared(true).
		Select("id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at").
		Where(goqu.C("processed").Eq(0)).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var evt domain.OutboxEvent
		var payload string
		var createdAt int64
		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.EventType, &payload, &createdAt); err != nil {
			return nil, err
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			return nil, fmt.Errorf("invalid JSON payload in outbox row %s: %w", evt.ID, err)
		}
		evt.Payload = decoded
		evt.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (r *OutboxRepoSQLite) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	query, args, err := Dialect.Update(outboxTable).Prepared(true).
		Set(goqu.Record{"processed": 1}).
		Where(goqu.C("id").Eq(id.String())).
		ToSQL()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected for outbox event %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("no outbox event found with id %s", id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.OutboxRepository = (*OutboxRepoSQLite)(nil)
