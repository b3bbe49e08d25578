package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/mlab/internal/domain"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
	Long: `Manage the provider API keys sent along with generate requests.

Keys are stored in the local state database, one per provider.`,
}

var keysAddCmd = &cobra.Command{
	Use:   "add <provider> <key>",
	Short: "Add or replace the key of a provider",
	Long: `Add or replace the key of a provider.

Examples:
  mlab keys add openai sk-... --name work`,
	Args: cobra.ExactArgs(2),
	RunE: runKeysAdd,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys (masked)",
	RunE:  runKeysList,
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <provider>",
	Short: "Remove the key of a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRemove,
}

var keysCheckCmd = &cobra.Command{
	Use:   "check <provider>",
	Short: "Check whether a key is available locally and on the backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysCheck,
}

var keyName string

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRemoveCmd)
	keysCmd.AddCommand(keysCheckCmd)
	keysAddCmd.Flags().StringVar(&keyName, "name", "", "Label for the key (default: provider name)")
}

func runKeysAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		key := domain.APIKey{Provider: args[0], Key: args[1], Name: keyName}
		if err := app.Keys.Add(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s key for %s\n", color.GreenString("Saved"), domain.ProviderDisplayName(args[0]))
		if !domain.ProviderNeedsAPIKey(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not require a key; it will be sent anyway\n", domain.ProviderDisplayName(args[0]))
		}
		return nil
	})
}

func runKeysList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		keys, err := app.Keys.List(ctx)
		if err != nil {
			return err
		}
		printKeys(cmd.OutOrStdout(), keys)
		return nil
	})
}

func runKeysRemove(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		if err := app.Keys.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed key for %s\n", domain.ProviderDisplayName(args[0]))
		return nil
	})
}

func runKeysCheck(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *AppContext) error {
		provider := args[0]
		out := cmd.OutOrStdout()

		if !domain.ProviderNeedsAPIKey(provider) {
			fmt.Fprintf(out, "%s does not require an API key\n", domain.ProviderDisplayName(provider))
			return nil
		}

		local, err := app.Keys.Has(ctx, provider)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored locally: %s\n", yesNo(local))

		remote, err := app.Client.CheckAPIKey(ctx, provider)
		if err != nil {
			fmt.Fprintf(out, "Backend:        %s\n", color.YellowString("unknown (%v)", err))
			return nil
		}
		fmt.Fprintf(out, "Backend:        %s\n", yesNo(remote))
		return nil
	})
}

func yesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.RedString("no")
}
