package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	postDomain "github.com/davicafu/postlab/internal/post/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

const insertActivity = "INSERT INTO posts_log (post_id, author_id, category_id, event_type, title, event_time)"

const dailyActivityQuery = `
	SELECT
		toStartOfDay(event_time) AS day,
		countIf(event_type = ?) AS created,
		countIf(event_type = ?) AS updated,
		countIf(event_type = ?) AS deleted
	FROM posts_log
	WHERE event_time BETWEEN ? AND ?
	GROUP BY day
	ORDER BY day
`

// PostAnalyticsRepo implementa la interfaz PostAnalyticsRepository para ClickHouse.
type PostAnalyticsRepo struct {
	db *sql.DB
}

// OpenDB abre la conexión con ClickHouse y comprueba que responde.
func OpenDB(addr, dbName string) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
	})

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return conn, nil
}

func NewPostAnalyticsRepo(db *sql.DB) *PostAnalyticsRepo {
	return &PostAnalyticsRepo{db: db}
}

// LogBatch inserta un lote de actividad. ClickHouse funciona mejor con lotes.
func (r *PostAnalyticsRepo) LogBatch(ctx context.Context, activity []postDomain.PostActivity) error {
	if len(activity) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insertActivity)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, a := range activity {
		if _, err := stmt.ExecContext(ctx,
			a.PostID,
			a.AuthorID,
			a.CategoryID,
			a.EventType,
			a.Title,
			a.EventTime,
		); err != nil {
			// un registro fallido descarta todo el lote
			_ = tx.Rollback()
			return fmt.Errorf("failed to exec statement for post %d: %w", a.PostID, err)
		}
	}
	return tx.Commit()
}

func (r *PostAnalyticsRepo) GetDailyActivity(ctx context.Context, start, end time.Time) ([]postDomain.DailyPostActivity, error) {
	rows, err := r.db.QueryContext(ctx, dailyActivityQuery,
		postDomain.PostCreated, postDomain.PostUpdated, postDomain.PostDeleted, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []postDomain.DailyPostActivity
	for rows.Next() {
		var (
			d                         postDomain.DailyPostActivity
			created, updated, deleted uint64
		)
		if err := rows.Scan(&d.Day, &created, &updated, &deleted); err != nil {
			return nil, err
		}
		d.CreatedCount, d.UpdatedCount, d.DeletedCount = int(created), int(updated), int(deleted)
		days = append(days, d)
	}
	return days, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe. Se particiona por mes
// y se ordena por autor y tiempo, que es como se consulta.
func (r *PostAnalyticsRepo) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS posts_log (
			post_id     Int64,
			author_id   UUID,
			category_id Int64,
			event_type  LowCardinality(String),
			title       String,
			event_time  DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (author_id, event_time, post_id);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Verificación estática de la interfaz.
var _ postDomain.PostAnalyticsRepository = (*PostAnalyticsRepo)(nil)
