package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/config"
	postDomain "github.com/davicafu/postlab/internal/post/domain"
	postMemory "github.com/davicafu/postlab/internal/post/infra/outbound/db/memory"
	postMongo "github.com/davicafu/postlab/internal/post/infra/outbound/db/mongodb"
	postPostgres "github.com/davicafu/postlab/internal/post/infra/outbound/db/postgre"
	postSQLite "github.com/davicafu/postlab/internal/post/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedMongo "github.com/davicafu/postlab/internal/shared/infra/platform/db/mongodb"
	sharedPostgres "github.com/davicafu/postlab/internal/shared/infra/platform/db/postgres"
	sharedSQLite "github.com/davicafu/postlab/internal/shared/infra/platform/db/sqlite"
)

// store agrupa el repositorio de posts y la outbox del mismo backend.
type store struct {
	posts  postDomain.PostRepository
	outbox sharedDomain.OutboxRepository
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sharedSQLite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := postSQLite.InitSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("✅ SQLite listo", zap.String("path", cfg.SQLitePath))
		return &store{
			posts:  postSQLite.NewPostRepoSQLite(db),
			outbox: sharedSQLite.NewOutboxRepoSQLite(db),
			close:  func() { _ = db.Close() },
		}, nil

	case config.StorePostgres:
		db, err := sharedPostgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postPostgres.InitPostgres(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("✅ Postgres listo")
		return &store{
			posts:  postPostgres.NewPostRepoPostgres(db),
			outbox: sharedPostgres.NewOutboxRepoPostgres(db),
			close:  func() { _ = db.Close() },
		}, nil

	case config.StoreMongoDB:
		client, err := sharedMongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		repo, err := postMongo.NewPostRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info("✅ MongoDB listo", zap.String("db", cfg.MongoDB))
		return &store{
			posts:  repo,
			outbox: sharedMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB),
			close:  func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StoreMemory:
		log.Warn("⚠️ Almacenamiento en memoria: los datos se pierden al salir")
		repo := postMemory.NewPostRepoMemory()
		return &store{posts: repo, outbox: repo, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}
