package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/config"
	postApp "github.com/davicafu/postlab/internal/post/application"
	postDomain "github.com/davicafu/postlab/internal/post/domain"
	postEvents "github.com/davicafu/postlab/internal/post/infra/inbound/events"
	postHttp "github.com/davicafu/postlab/internal/post/infra/inbound/http"
	postAnalytics "github.com/davicafu/postlab/internal/post/infra/outbound/analytics/clickhouse"
	postCache "github.com/davicafu/postlab/internal/post/infra/outbound/cache"
	infraEvents "github.com/davicafu/postlab/internal/shared/infra/events"
	sharedCache "github.com/davicafu/postlab/internal/shared/infra/platform/cache"
	infraRelayer "github.com/davicafu/postlab/internal/shared/infra/relayer"
	sharedUtils "github.com/davicafu/postlab/internal/shared/infra/utils"
	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
	"github.com/davicafu/postlab/pkg/logger"
)

const (
	activityBatchSize = 100
	activityFlush     = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Arranca la API HTTP, el relayer de outbox y el consumidor de actividad",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		log := logger.Init(cfg.LogLevel)
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// ---------------- DB ----------------
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	if rdb, err := postCache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		mem := postCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer mem.Stop()
		cacheInstance = mem
	} else {
		defer rdb.Close()
		cacheInstance = postCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// --------------- Servicio --------------
	postService := postApp.NewPostService(st.posts, cacheInstance, log)

	// ---------------- Analytics ---------------
	var activity infraEvents.MessageHandler
	if cfg.ClickHouseAddr != "" {
		chDB, err := postAnalytics.OpenDB(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin analítica", zap.Error(err))
		} else {
			defer chDB.Close()
			repo := postAnalytics.NewPostAnalyticsRepo(chDB)
			if err := repo.InitSchema(ctx); err != nil {
				return err
			}
			consumer := postEvents.NewPostActivityConsumer(repo, activityBatchSize, log)
			go consumer.Run(ctx, activityFlush)
			activity = consumer
		}
	}

	// ---------------- Events ---------------
	var publisher sharedBus.EventPublisher
	log.Info("Bus de eventos", zap.String("kind", sharedUtils.Ternary(cfg.UseKafka, "kafka", "memory")))
	if cfg.UseKafka {
		kafkaPublisher := infraEvents.NewKafkaPublisher(infraEvents.NewKafkaWriter(cfg.KafkaBrokers, postDomain.PostTopic), log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		if activity != nil {
			reader := infraEvents.NewKafkaReader(cfg.KafkaBrokers, postDomain.PostTopic, cfg.KafkaGroupID)
			infraEvents.NewConsumerAdapter(reader, activity, log).Start(ctx)
		}
	} else {
		bus := infraEvents.NewInMemoryEventBus(postDomain.PostTopic)
		publisher = bus
		if activity != nil {
			log.Info("🎧 Iniciando listener en memoria para eventos de post")
			infraEvents.BackgroundConsumerChan(ctx, bus.Subscribe(activityBatchSize), activity)
		}
	}

	// ------------ Outbox Worker ------------
	worker := infraRelayer.NewOutboxWorker(st.outbox, publisher, postDomain.NewEventRegistry(), cfg.OutboxPeriod, cfg.OutboxLimit, log)
	go worker.Start(ctx)

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	postHttp.RegisterPostRoutes(router, postHttp.NewPostHandler(postService, log))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("🛑 Apagando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
