package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Show where a request would be routed",
	Long: `Run the routing rules offline. Credentials are described by flags instead of
being checked, so this never calls a provider.`,
	Example: `  ecoswitch route --model gpt-4 --provider deepseek --valid openai
  ecoswitch route --provider openai --image --server`,
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringP("model", "m", "", "requested model")
	routeCmd.Flags().StringP("provider", "p", "", "requested provider")
	routeCmd.Flags().Bool("image", false, "request carries an image")
	routeCmd.Flags().StringSlice("valid", nil, "providers holding a valid user key")
	routeCmd.Flags().StringSlice("invalid", nil, "providers holding a key that failed validation")
	routeCmd.Flags().Bool("server", false, "the server OpenRouter key is available")
}

func runRoute(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	model, _ := flags.GetString("model")
	provider, _ := flags.GetString("provider")
	image, _ := flags.GetBool("image")
	valid, _ := flags.GetStringSlice("valid")
	invalid, _ := flags.GetStringSlice("invalid")
	serverKey, _ := flags.GetBool("server")

	var requested providers.Kind
	if provider != "" {
		kind, err := providers.ParseKind(provider)
		if err != nil {
			return err
		}
		requested = kind
	}

	states := make(map[providers.Kind]router.CredentialState)
	for _, list := range []struct {
		names []string
		valid bool
	}{{invalid, false}, {valid, true}} {
		for _, name := range list.names {
			kind, err := providers.ParseKind(name)
			if err != nil {
				return err
			}
			states[kind] = router.CredentialState{Present: true, Valid: list.valid}
		}
	}

	decision, err := router.Route(router.Input{
		RequestedModel:            model,
		RequestedProvider:         requested,
		HasImage:                  image,
		Credentials:               states,
		OpenRouterServerAvailable: serverKey,
	})
	if err != nil {
		var perr *providers.Error
		if errors.As(err, &perr) {
			color.Red("%s (%s)", perr.Message, providers.KindLabel(err))
			return errors.New("no route")
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(decision); err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	return nil
}
