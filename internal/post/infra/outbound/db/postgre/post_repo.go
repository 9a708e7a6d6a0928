package postgre

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedPostgres "github.com/davicafu/postlab/internal/shared/infra/platform/db/postgres"
	"github.com/davicafu/postlab/internal/shared/infra/platform/db/sqlcriteria"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
)

var postColumns = []interface{}{
	"id", "author_id", "category_id", "title", "description", "body", "tags", "created_at", "updated_at",
}

// Postgres entiende UUID y TIMESTAMPTZ de forma nativa; no hace falta mapear valores.
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
	Mapper: sqlcriteria.Identity,
}

type PostRepoPostgres struct {
	db *sql.DB
}

func NewPostRepoPostgres(db *sql.DB) *PostRepoPostgres {
	return &PostRepoPostgres{db: db}
}

var _ domain.PostRepository = (*PostRepoPostgres)(nil)

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostRepoPostgres) Create(ctx context.Context, p *domain.Post, newEvent domain.EventFactory) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}
	rec := goqu.Record{
		"author_id":   p.AuthorID,
		"category_id": p.CategoryID,
		"title":       p.Title,
		"description": p.Description,
		"body":        p.Body,
		"tags":        string(tags),
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
	if p.ID != 0 {
		rec["id"] = p.ID
	}
	query, args, err := sharedPostgres.Dialect.Insert("posts").Prepared(true).
		Rows(rec).Returning("id").ToSQL()
	if err != nil {
		return err
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&p.ID); err != nil {
			if sharedPostgres.IsUniqueViolation(err) {
				return domain.ErrPostAlreadyExists
			}
			return err
		}
		return sharedPostgres.InsertOutboxTx(ctx, tx, newEvent(p))
	})
}

func (r *PostRepoPostgres) Update(ctx context.Context, p *domain.Post, evt sharedDomain.OutboxEvent) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}
	query, args, err := sharedPostgres.Dialect.Update("posts").Prepared(true).Set(goqu.Record{
		"category_id": p.CategoryID,
		"title":       p.Title,
		"description": p.Description,
		"body":        p.Body,
		"tags":        string(tags),
		"updated_at":  p.UpdatedAt,
	}).Where(goqu.C("id").Eq(p.ID)).ToSQL()
	if err != nil {
		return err
	}
	return r.mutate(ctx, query, args, evt)
}

func (r *PostRepoPostgres) DeleteByID(ctx context.Context, id int64, evt sharedDomain.OutboxEvent) error {
	query, args, err := sharedPostgres.Dialect.Delete("posts").Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return err
	}
	return r.mutate(ctx, query, args, evt)
}

func (r *PostRepoPostgres) mutate(ctx context.Context, query string, args []interface{}, evt sharedDomain.OutboxEvent) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
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
		return sharedPostgres.InsertOutboxTx(ctx, tx, evt)
	})
}

func (r *PostRepoPostgres) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	query, args, err := sharedPostgres.Dialect.From("posts").Prepared(true).
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

func (r *PostRepoPostgres) Search(ctx context.Context, q pagination.QuerySpec) ([]*domain.Post, error) {
	ds, err := translator.Apply(sharedPostgres.Dialect.From("posts").Prepared(true).Select(postColumns...), q)
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
	var tags []byte
	if err := s.Scan(&p.ID, &p.AuthorID, &p.CategoryID, &p.Title, &p.Description, &p.Body, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("invalid tags for post %d: %w", p.ID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// InitPostgres crea posts (con índices para cada orden keyset) y outbox.
// TIMESTAMPTZ(3) guarda milisegundos, la misma precisión que el cursor.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	err := sharedPostgres.ExecAll(ctx, db,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			author_id UUID NOT NULL,
			category_id BIGINT NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			body TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ(3) NOT NULL,
			updated_at TIMESTAMPTZ(3) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at_id ON posts (created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_updated_at_id ON posts (updated_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_title_id ON posts (title, id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts (author_id)`,
	)
	if err != nil {
		return err
	}
	return sharedPostgres.InitOutbox(ctx, db)
}
