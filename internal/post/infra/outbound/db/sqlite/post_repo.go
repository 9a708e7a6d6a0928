package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedSQLite "github.com/davicafu/postlab/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/postlab/internal/shared/infra/platform/db/sqlcriteria"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
)

const postsTable = "posts"

var postColumns = []interface{}{
	"id", "author_id", "category_id", "title", "description", "body", "tags", "created_at", "updated_at",
}

// Las fechas se guardan como INTEGER en milisegundos: comparan igual que el
// valor del cursor y ordenan numéricamente.
var translator = sqlcriteria.Translator{
	Columns: map[string]string{
		domain.FieldID:          "id",
		domain.FieldAuthorID:    "author_id",
		domain.FieldCategoryID:  "category_id",
		domain.FieldTitle:       "title",
		domain.FieldDescription: "description",
		domain.FieldBody:        "body",
		domain.FieldCreatedAt:   "created_at",
		domain.FieldUpdatedAt:   "updated_at",
	},
	Mapper: sqlcriteria.UnixMillis,
}

type PostRepoSQLite struct {
	db *sql.DB
}

func NewPostRepoSQLite(db *sql.DB) *PostRepoSQLite {
	return &PostRepoSQLite{db: db}
}

var _ domain.PostRepository = (*PostRepoSQLite)(nil)

// ------------------ Métodos ------------------

// Create inserta el post y su evento en una transacción.
func (r *PostRepoSQLite) Create(ctx context.Context, p *domain.Post, newEvent domain.EventFactory) (err error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}
	rec := goqu.Record{
		"author_id":   p.AuthorID.String(),
		"category_id": p.CategoryID,
		"title":       p.Title,
		"description": p.Description,
		"body":        p.Body,
		"tags":        string(tags),
		"created_at":  p.CreatedAt.UnixMilli(),
		"updated_at":  p.UpdatedAt.UnixMilli(),
	}
	if p.ID != 0 {
		rec["id"] = p.ID
	}
	query, args, err := sharedSQLite.Dialect.Insert(postsTable).Prepared(true).Rows(rec).ToSQL()
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if sharedSQLite.IsConstraintViolation(err) {
			return domain.ErrPostAlreadyExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id

	if err = sharedSQLite.InsertOutboxTx(ctx, tx, newEvent(p)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostRepoSQLite) Update(ctx context.Context, p *domain.Post, evt sharedDomain.OutboxEvent) (err error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}
	query, args, err := sharedSQLite.Dialect.Update(postsTable).Prepared(true).Set(goqu.Record{
		"category_id": p.CategoryID,
		"title":       p.Title,
		"description": p.Description,
		"body":        p.Body,
		"tags":        string(tags),
		"updated_at":  p.UpdatedAt.UnixMilli(),
	}).Where(goqu.C("id").Eq(p.ID)).ToSQL()
	if err != nil {
		return err
	}
	return r.mutate(ctx, query, args, evt)
}

func (r *PostRepoSQLite) DeleteByID(ctx context.Context, id int64, evt sharedDomain.OutboxEvent) error {
	query, args, err := sharedSQLite.Dialect.Delete(postsTable).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return err
	}
	return r.mutate(ctx, query, args, evt)
}

// mutate ejecuta un UPDATE/DELETE sobre un post y guarda el evento en la misma transacción.
func (r *PostRepoSQLite) mutate(ctx context.Context, query string, args []interface{}, evt sharedDomain.OutboxEvent) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPostNotFound
	}
	if err = sharedSQLite.InsertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostRepoSQLite) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query, args, err := sharedSQLite.Dialect.From(postsTable).Prepared(true).
		Select(postColumns...).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, err
	}
	p, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	}
	return p, err
}

// Search ejecuta la consulta keyset planificada.
func (r *PostRepoSQLite) Search(ctx context.Context, q pagination.QuerySpec) ([]*domain.Post, error) {
	ds, err := translator.Apply(sharedSQLite.Dialect.From(postsTable).Prepared(true).Select(postColumns...), q)
	if err != nil {
		return nil, err
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0, q.Limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(s scanner) (*domain.Post, error) {
	var p domain.Post
	var tags string
	var createdAt, updatedAt int64
	if err := s.Scan(&p.ID, &p.AuthorID, &p.CategoryID, &p.Title, &p.Description, &p.Body, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags for post %d: %w", p.ID, err)
	}
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea las tablas posts y outbox con sus índices keyset.
func InitSQLite(ctx context.Context, db *sql.DB) error {
	err := sharedSQLite.ExecAll(ctx, db,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id TEXT NOT NULL,
			category_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			body TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at_id ON posts (created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_updated_at_id ON posts (updated_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_title_id ON posts (title, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts (author_id)`,
	)
	if err != nil {
		return err
	}
	return sharedSQLite.InitOutbox(ctx, db)
}
