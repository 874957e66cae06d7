package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cardbase/api"
	"cardbase/config"
	"cardbase/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg := config.AppConfig

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(cfg.Images.Dir, 0755); err != nil {
		return err
	}

	catalog, err := service.NewCatalogService(st, cfg.Images.Dir, cfg.LinkCacheSize, log)
	if err != nil {
		return err
	}
	// 首次加载失败不阻止启动，请求到来时会再次加载
	if err := catalog.Refresh(ctx); err != nil {
		log.Warn("initial catalog load failed", zap.Error(err))
	}

	handler := api.NewHandler(catalog, st, cfg.Images, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.SetupRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.RunMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if every := cfg.CatalogRefresh.Std(); every > 0 {
		g.Go(func() error {
			refreshLoop(gctx, catalog, every)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// refreshLoop 定时重新加载快照，命令行导入的数据由此生效
func refreshLoop(ctx context.Context, catalog *service.CatalogService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// 失败时保留上一次的快照，已在服务内记录日志
			_ = catalog.Refresh(ctx)
		}
	}
}
