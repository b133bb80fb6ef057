package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/normalizer"
	"github.com/Davincible/ecoswitch-go/internal/process"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt...]",
	Short: "Send one prompt through the chat service",
	Long: `Start the service if needed and send a prompt through /api/send. Provider keys
are read from flags or from OPENAI_API_KEY, DEEPSEEK_API_KEY and
OPENROUTER_USER_KEY. Without keys the request falls back to the server's
OpenRouter key.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("provider", "p", "", "requested provider (openai, deepseek, openrouter)")
	askCmd.Flags().StringP("model", "m", "", "requested model")
	askCmd.Flags().String("image", "", "image URL or data URL to attach")
	askCmd.Flags().Int64P("conversation", "c", 0, "continue an existing conversation")
	askCmd.Flags().String("openai-key", "", "OpenAI API key")
	askCmd.Flags().String("deepseek-key", "", "DeepSeek API key")
	askCmd.Flags().String("openrouter-key", "", "OpenRouter API key")
}

type askBody struct {
	ConversationID int64             `json:"conversation_id,omitempty"`
	Prompt         string            `json:"prompt"`
	Image          string            `json:"image,omitempty"`
	Model          string            `json:"model,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	Keys           map[string]string `json:"keys"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	procMgr := process.NewManager(baseDir, logger)
	cfg := cfgMgr.Get()
	base := endpoint(cfg.Host, cfg.Port)

	startedByUs, err := procMgr.StartServiceIfNeeded(cmd.Context(), base+"/health")
	if err != nil {
		return err
	}

	procMgr.IncrementRef()
	defer func() {
		// Only stop the service if we started it and nobody else uses it.
		if procMgr.DecrementRef() == 0 && startedByUs {
			color.Yellow("No more active sessions, stopping auto-started service...")
			if err := procMgr.Stop(); err != nil {
				logger.Warn("Failed to stop service", "error", err)
			}
		}
	}()

	flags := cmd.Flags()
	body := askBody{
		Prompt: strings.Join(args, " "),
		Keys: map[string]string{
			"openai":     flagOrEnv(cmd, "openai-key", "OPENAI_API_KEY"),
			"deepseek":   flagOrEnv(cmd, "deepseek-key", "DEEPSEEK_API_KEY"),
			"openrouter": flagOrEnv(cmd, "openrouter-key", "OPENROUTER_USER_KEY"),
		},
	}
	body.ConversationID, _ = flags.GetInt64("conversation")
	body.Image, _ = flags.GetString("image")
	body.Model, _ = flags.GetString("model")
	body.Provider, _ = flags.GetString("provider")

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, base+"/api/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	client := &http.Client{Timeout: cfg.ChatTimeout.Std() + 10*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("service returned %s", resp.Status)
		}
		return errors.New(apiErr.Message)
	}

	var res chat.SendResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}

	printReply(res)
	return nil
}

func printReply(res chat.SendResult) {
	color.Cyan("%s via %s", normalizer.DisplayModelName(res.Message.Model), res.Message.Provider.DisplayName())
	if res.Decision.Rule != router.RuleRequested {
		color.Yellow("(%s)", res.Decision.Reason)
	}

	if normalizer.IsAdvisory(res.Message.Content) {
		color.Yellow("%s", res.Message.Content)
	} else {
		fmt.Println(res.Message.Content)
	}

	color.New(color.Faint).Printf("conversation %d\n", res.ConversationID)
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}
