package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/config"
	postApp "github.com/davicafu/postlab/internal/post/application"
	"github.com/davicafu/postlab/pkg/logger"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Carga posts de ejemplo en el almacenamiento configurado",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		log := logger.Init(cfg.LogLevel)
		defer log.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := openStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer st.close()

		n, err := postApp.Seed(ctx, postApp.NewPostService(st.posts, nil, log), nil, seedCount)
		if err != nil {
			log.Error("Seed failed", zap.Int("created", n), zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d posts creados\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 40, "número de posts a crear")
}
