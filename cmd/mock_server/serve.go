package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/utils"

	"github.com/go-chassis/go-chassis/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin API and the mock dispatch listener",
	RunE:  runServe,
}

func loadConfig() (*configs.MockConfig, error) {
	cfg, err := configs.LoadMockConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := utils.InitLogger(cfg.LogConfig.Options()); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := utils.GetLogger()

	app, cleanup, err := InitializeMockApp(cfg)
	if err != nil {
		return fmt.Errorf("assemble mock server: %w", err)
	}
	defer cleanup()

	// 启动前先装载一次规则表
	if _, err := app.RuleService.Reload(cmd.Context()); err != nil {
		logger.Errorf("initial rule table load failed, starting with an empty table: %v", err)
	}

	go func() {
		logger.Infof("mock dispatch listening on %s (prefix %q)", cfg.ServerConfig.DispatchAddr, cfg.ServerConfig.PathPrefix)
		if err := app.Dispatch.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("mock dispatch listener stopped: %v", err)
		}
	}()

	chassis.InstallPreShutdown("mock_dispatch", func(os.Signal) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerConfig.ShutdownTimeout)
		defer cancel()
		if err := app.Dispatch.Shutdown(ctx); err != nil {
			logger.Errorf("mock dispatch shutdown: %v", err)
		}
		app.Simulator.Close()
		logger.Info("mock dispatch stopped")
	})

	chassis.RegisterSchema("rest", app.Controller)
	if err := chassis.Init(); err != nil {
		return fmt.Errorf("init chassis: %w", err)
	}
	return chassis.Run()
}
