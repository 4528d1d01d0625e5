package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/catalyst/internal/api"
	"github.com/wonny/catalyst/internal/api/handlers"
	"github.com/wonny/catalyst/internal/api/stream"
	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버와 진행률 WebSocket 스트림을 시작합니다.

Endpoints:
  GET  /health                   - Health check
  GET  /ws/runs                  - Run progress stream (WebSocket)
  GET  /api/runs                 - 저장된 실행 목록
  POST /api/runs                 - 백테스트 실행 시작 {"variant": "catalyst"}
  GET  /api/runs/{id}            - 실행 요약
  GET  /api/runs/{id}/results    - 거래 결과
  GET  /api/runs/{id}/skips      - 스킵 사유
  GET  /api/runs/{id}/signals    - 시그널 피드

Example:
  go run ./cmd/catalyst serve
  go run ./cmd/catalyst serve --port 8080`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	hub := stream.NewHub(a.log)

	launch := func(ctx context.Context, variant backtest.Variant, observer backtest.Observer) (*brain.RunResult, error) {
		return a.runVariant(ctx, variant, observer, true)
	}

	// interface에 typed nil이 들어가지 않도록 분기
	var store handlers.RunStore
	if a.repo != nil {
		store = a.repo
	}
	var health api.HealthChecker
	if a.db != nil {
		health = a.db
	}

	runHandler := handlers.NewRunHandler(ctx, store, launch, hub, a.log)
	router := api.NewRouter(runHandler, hub, health, a.log)

	fmt.Printf("=== Catalyst API Server (:%s) ===\n", a.cfg.Port)
	return api.New(a.cfg, a.log, router).Run(ctx)
}
