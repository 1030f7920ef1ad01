package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/kantei/internal/api"
	"github.com/wonny/kantei/internal/api/handlers"
	"github.com/wonny/kantei/internal/appraisal"
	"github.com/wonny/kantei/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `평가 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                     - Health check
  POST /api/appraisals             - 단건 평가 (?detail=true&simulate=true)
  POST /api/appraisals/batch       - 일괄 평가 (save / publish 옵션)
  GET  /api/appraisals/{listingID} - 저장된 평가 조회 (DATABASE_URL 필요)
  GET  /api/scenarios              - 매크로 시나리오 목록
  GET  /api/wards                  - 구 계수 목록
  GET  /api/config                 - 엔진 설정 / 해시 / 경고

Example:
  go run ./cmd/kantei api
  go run ./cmd/kantei api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본 PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "=== kantei API Server ===")

	// 1. Config, tables, pipeline
	a, err := loadApp()
	if err != nil {
		return err
	}
	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx := context.Background()

	// 2. Optional infrastructure
	repo, closeDB, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	rdb, err := a.openRedis(ctx)
	if err != nil {
		return err
	}
	defer rdb.Close()

	pub, err := a.openPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	// 3. Handler, router, server
	cached := appraisal.NewCachedPipeline(a.pipeline, redis.NewCache(rdb, "kantei"), cfg.Redis.TTL, log.Zerolog())

	var (
		store  handlers.AppraisalStore
		health handlers.HealthChecker
	)
	if repo != nil {
		store, health = repo, a.db
	}
	var publisher appraisal.EventPublisher
	if pub.Enabled() {
		publisher = pub
	}

	h := handlers.NewAppraisalHandler(cached, store, health, publisher, cfg.API.MaxBatchSize, cfg.BatchWorkers, log)
	limiter := api.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateBurst, redis.NewRateLimiter(rdb, "kantei"), log)
	server := api.New(cfg, log, api.NewRouter(h, limiter, log))

	// 4. Start with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.WithFields(map[string]interface{}{
		"addr":        server.Addr(),
		"persistence": repo != nil,
		"cache":       rdb.Enabled(),
		"notify":      pub.Enabled(),
		"config_hash": a.pipeline.ConfigHash(),
	}).Info("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
