package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/assetgw/internal/config"
	"github.com/xxxsen/assetgw/internal/filestore"
	"github.com/xxxsen/assetgw/internal/handler"
	"github.com/xxxsen/assetgw/internal/middleware"
)

const (
	apiPrefix       = "/api/v1"
	shutdownTimeout = 30 * time.Second
)

func main() {
	var (
		configPath string
		envFile    string
	)

	rootCmd := &cobra.Command{
		Use:   "assetgw",
		Short: "media asset gateway",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run asset gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, envFile)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	runCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before reading the environment")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	deps := handler.RouterDeps{
		Uploads:      handler.NewUploadHandler(store, cfg.MaxUploadBytes),
		APIKeyHeader: cfg.APIKeyHeader,
		APIKey:       []byte(cfg.APIKey),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	cors := middleware.NewCORSPolicy(cfg.CORSAllowOrigins, cfg.APIKeyHeader)
	engine, err := webapi.NewEngine(
		apiPrefix,
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Recovery(),
			cors.Middleware(),
			gzip.Gzip(gzip.DefaultCompression),
			handler.Unrouted(apiPrefix, deps),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	// Served through Edge rather than engine.Run so that the CORS headers and
	// the chunked body limit apply ahead of the engine's built-in middlewares.
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewEdge(engine, cors, deps),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
