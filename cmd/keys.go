package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/providers"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect provider credentials",
}

var keysCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check provider keys against the live APIs",
	Long: `Run the format and live checks for every supplied key, plus the server's
OpenRouter key, without starting the service.`,
	RunE: runKeysCheck,
}

func init() {
	keysCheckCmd.Flags().String("openai-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	keysCheckCmd.Flags().String("deepseek-key", "", "DeepSeek API key (default $DEEPSEEK_API_KEY)")
	keysCheckCmd.Flags().String("openrouter-key", "", "OpenRouter API key (default $OPENROUTER_USER_KEY)")
	keysCmd.AddCommand(keysCheckCmd)
}

func runKeysCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := cfgMgr.LoadOrDefault()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	verifier, cleanup, err := newVerifier(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	keys := map[providers.Kind]string{
		providers.OpenAI:     flagOrEnv(cmd, "openai-key", "OPENAI_API_KEY"),
		providers.DeepSeek:   flagOrEnv(cmd, "deepseek-key", "DEEPSEEK_API_KEY"),
		providers.OpenRouter: flagOrEnv(cmd, "openrouter-key", "OPENROUTER_USER_KEY"),
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.VerifyTimeout.Std()+5*time.Second)
	defer cancel()

	states := verifier.CheckAll(ctx, keys)

	color.Blue("Provider keys:")
	for _, kind := range providers.Kinds() {
		st := states[kind]
		switch {
		case !st.Present:
			fmt.Printf("  %-11s %s\n", kind.DisplayName()+":", color.New(color.Faint).Sprint("not set"))
		case st.Valid:
			fmt.Printf("  %-11s %s %s\n", kind.DisplayName()+":", credentials.Mask(keys[kind]), color.GreenString("valid"))
		default:
			reason := "rejected"
			if err := credentials.CheckFormat(kind, keys[kind]); err != nil {
				reason = err.Error()
			}
			fmt.Printf("  %-11s %s %s\n", kind.DisplayName()+":", credentials.Mask(keys[kind]), color.RedString(reason))
		}
	}

	switch {
	case !verifier.HasServerKey():
		fmt.Printf("  %-11s %s\n", "Server:", color.YellowString("no OpenRouter fallback key configured"))
	case verifier.VerifyServer(ctx):
		fmt.Printf("  %-11s %s\n", "Server:", color.GreenString("OpenRouter fallback connected"))
	default:
		fmt.Printf("  %-11s %s\n", "Server:", color.RedString("OpenRouter fallback key rejected"))
	}
	return nil
}
