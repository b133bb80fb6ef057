package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/process"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chat service status",
	Long:  `Display the current status of the EcoSwitch service.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) {
	procMgr := process.NewManager(baseDir, logger)
	cfg := cfgMgr.Get()

	running := procMgr.IsRunning()
	base := endpoint(cfg.Host, cfg.Port)

	color.Blue("Status for %s:", AppName)
	fmt.Printf("  %-15s: %v\n", "Running", running)
	fmt.Printf("  %-15s: %d\n", "PID", procMgr.ReadPID())
	fmt.Printf("  %-15s: %s\n", "Endpoint", base)
	if running {
		fmt.Printf("  %-15s: %s\n", "Health", probeHealth(cmd.Context(), base+"/health"))
	}

	store := "memory"
	if cfg.DatabaseURL != "" {
		store = "postgres"
	}
	cache := "memory"
	if cfg.RedisAddr != "" {
		cache = "redis " + cfg.RedisAddr
	}
	fmt.Printf("  %-15s: %s\n", "Store", store)
	fmt.Printf("  %-15s: %s\n", "Verify Cache", cache)
	fmt.Printf("  %-15s: %v\n", "Server Key", cfg.OpenRouter.APIKey != "")
	fmt.Printf("  %-15s: %s\n", "Default", cfg.Defaults.Provider)

	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())
	fmt.Printf("  %-15s: %d\n", "References", procMgr.ReadRef())
	fmt.Printf("  %-15s: v%s\n", "Version", Version)
}

func probeHealth(ctx context.Context, url string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err.Error()
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "unreachable"
	}
	defer resp.Body.Close()
	return resp.Status
}
