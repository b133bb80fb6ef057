package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/config"
)

const (
	AppName = "ecoswitch"
	Version = "0.1.0"

	logFilename = "ecoswitch.log"
)

var (
	logger  *slog.Logger
	homeDir string
	baseDir string
	cfgMgr  *config.Manager
	logSink io.Closer
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		logger.Error("Failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = filepath.Join(homeDir, "."+AppName)
	cfgMgr = config.NewManager(baseDir)
}

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "EcoSwitch - multi-provider chat backend",
	Long: `EcoSwitch serves one chat API in front of OpenAI, DeepSeek and OpenRouter.
It validates credentials, routes each request to a provider that can answer it,
falls back to OpenRouter when a direct key is missing, and replaces empty or
degenerate replies with a readable advisory.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loadEnvFiles()

		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetBool("log-file")
		return setupLogging(verbose, logFile)
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logSink != nil {
			_ = logSink.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolP("log-file", "l", false, "also write logs to ~/."+AppName+"/"+logFilename)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(configCmd)
}

// loadEnvFiles reads .env from the working directory and the config
// directory. Variables already set in the environment win.
func loadEnvFiles() {
	for _, path := range []string{".env", filepath.Join(baseDir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
		}
	}
}

func setupLogging(verbose, logFile bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if logFile {
		if err := os.MkdirAll(baseDir, 0o750); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(baseDir, logFilename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logSink = f
		out = io.MultiWriter(os.Stdout, f)
	}

	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return nil
}

func endpoint(host string, port int) string {
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
