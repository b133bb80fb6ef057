package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/config"
	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/providers"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the EcoSwitch service configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for keys and storage settings.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration with secrets masked.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for errors.`,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("EcoSwitch Configuration Setup")
	color.Yellow("Press enter to accept the value in brackets.")

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label, def string) string {
		if def != "" {
			fmt.Printf("%s [%s]: ", label, def)
		} else {
			fmt.Printf("%s: ", label)
		}
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
		return def
	}

	cfg := config.Default()

	fmt.Println()
	cfg.OpenRouter.APIKey = prompt("OpenRouter server key (fallback for users without keys)", os.Getenv("OPENROUTER_API_KEY"))
	if cfg.OpenRouter.APIKey != "" {
		if err := credentials.CheckFormat(providers.OpenRouter, cfg.OpenRouter.APIKey); err != nil {
			color.Yellow("Warning: %v", err)
		}
	}
	cfg.APIKey = prompt("Service API key (optional, protects /api)", "")
	cfg.DatabaseURL = prompt("Postgres URL (optional, empty keeps history in memory)", "")
	cfg.RedisAddr = prompt("Redis address (optional, shares the key verification cache)", "")
	cfg.Defaults.Provider = prompt("Default provider (openai, deepseek, openrouter)", cfg.Defaults.Provider)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("You can now start the service with: %s start", AppName)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run '%s config init' to create one.", AppName)
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-18s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-18s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-18s: %s\n", "API Key", maskString(cfg.APIKey))
	fmt.Printf("  %-18s: %s\n", "Database", maskDSN(cfg.DatabaseURL))
	fmt.Printf("  %-18s: %s\n", "Redis", orNotSet(cfg.RedisAddr))
	fmt.Printf("  %-18s: %s\n", "Verify Timeout", cfg.VerifyTimeout.Std())
	fmt.Printf("  %-18s: %s\n", "Verify Cache TTL", cfg.VerifyCacheTTL.Std())
	fmt.Printf("  %-18s: %s\n", "Chat Timeout", cfg.ChatTimeout.Std())
	fmt.Printf("  %-18s: %s\n", "Config Path", cfgMgr.GetPath())

	fmt.Println("\nProviders:")
	fmt.Printf("  - OpenAI:     %s\n", cfg.OpenAI.BaseURL)
	fmt.Printf("  - DeepSeek:   %s\n", cfg.DeepSeek.BaseURL)
	fmt.Printf("  - OpenRouter: %s\n", cfg.OpenRouter.BaseURL)
	fmt.Printf("    Server Key: %s\n", maskString(cfg.OpenRouter.APIKey))
	fmt.Printf("    Identity:   %s (%s)\n", cfg.OpenRouter.Title, cfg.OpenRouter.Referer)

	fmt.Println("\nDefaults:")
	p := cfg.Defaults.Parameters
	fmt.Printf("  %-18s: %s\n", "Provider", cfg.Defaults.Provider)
	fmt.Printf("  %-18s: %s\n", "Model", orNotSet(cfg.Defaults.Model))
	fmt.Printf("  %-18s: %.2f\n", "Temperature", p.Temperature)
	fmt.Printf("  %-18s: %d\n", "Max Tokens", p.MaxTokens)
	fmt.Printf("  %-18s: %.2f / %.2f\n", "Penalties", p.PresencePenalty, p.FrequencyPenalty)

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return fmt.Errorf("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		color.Red("Configuration validation failed:")
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Printf("  - %s\n", line)
		}
		return fmt.Errorf("configuration validation failed")
	}

	// Custom endpoints are allowed, but a URL for the wrong vendor is
	// almost always a mistake.
	for kind, base := range map[providers.Kind]string{
		providers.OpenAI:     cfg.OpenAI.BaseURL,
		providers.DeepSeek:   cfg.DeepSeek.BaseURL,
		providers.OpenRouter: cfg.OpenRouter.BaseURL,
	} {
		detected, err := providers.KindForURL(base)
		switch {
		case err != nil:
			color.Yellow("Note: %s base URL %s is a custom endpoint", kind.DisplayName(), base)
		case detected != kind:
			color.Yellow("Warning: %s base URL %s belongs to %s", kind.DisplayName(), base, detected.DisplayName())
		}
	}

	color.Green("Configuration is valid!")
	return nil
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	return credentials.Mask(s)
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not set, in-memory)"
	}
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			return dsn[:scheme+3] + "***" + dsn[at:]
		}
	}
	return dsn
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
