package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/process"
	"github.com/Davincible/ecoswitch-go/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat service",
	Long: `Start the EcoSwitch HTTP service in the foreground. Conversations are kept
in Postgres when DATABASE_URL is set and in memory otherwise.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration file found, using defaults and environment. Run '%s config init' to create one.", AppName)
	}

	cfg, err := cfgMgr.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	procMgr := process.NewManager(baseDir, logger)
	if procMgr.IsRunning() {
		return errors.New("service is already running, stop it first with '" + AppName + " stop'")
	}

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"auth", cfg.APIKey != "",
		"openrouter_fallback", cfg.OpenRouter.APIKey != "",
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.OpenRouter.APIKey != "" {
		go func() {
			vctx, vcancel := context.WithTimeout(context.Background(), cfg.VerifyTimeout.Std())
			defer vcancel()
			logger.Info("OpenRouter server key checked", "connected", deps.Verifier.VerifyServer(vctx))
		}()
	}

	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(cfgMgr, deps, logger)
	return srv.Start()
}
