package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/credentials"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the AI provider API keys stored in your account",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API keys",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		client, err := newClient(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		keys, err := client.ListCredentials(ctx)
		if err != nil {
			logger.Fatal("listing api keys", zap.Error(err))
		}

		logger.Info("getting api keys", zap.Int("count", len(keys)))
		for _, k := range keys {
			fmt.Println(keyLabel(k))
		}
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add [provider]",
	Short: "Store a new API key",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		logger, config := setup()

		o, err := newManager(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		var provider credentials.Provider
		if len(args) == 1 {
			provider, err = credentials.ParseProvider(args[0])
		} else {
			provider, err = selectProvider()
		}
		if err != nil {
			logger.Fatal("choosing a provider", zap.Error(err))
		}

		secretPrompt := promptui.Prompt{
			Label: fmt.Sprintf("%s API key", provider.Label()),
			Mask:  '*',
			Validate: func(s string) error {
				return credentials.ValidateSecret(provider, s)
			},
		}

		secret, err := secretPrompt.Run()
		if err != nil {
			logger.Fatal("reading the api key", zap.Error(err))
		}

		key, err := o.AddCredential(ctx, provider.String(), secret)
		if err != nil {
			logger.Fatal("storing the api key", zap.Error(err))
		}

		logger.Info("api key stored", zap.String("id", key.ID), zap.String("provider", key.Provider), zap.String("key", key.MaskedKey))
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored API key",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		logger, config := setup()

		o, err := newManager(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		if err := o.DeleteCredential(ctx, args[0]); err != nil {
			logger.Fatal("deleting the api key", zap.Error(err))
		}

		logger.Info("api key deleted", zap.String("id", args[0]))
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd, keysAddCmd, keysDeleteCmd)
	rootCmd.AddCommand(keysCmd)
}

func selectProvider() (credentials.Provider, error) {
	items := make([]string, 0, len(credentials.Providers))
	for _, p := range credentials.Providers {
		items = append(items, p.Label())
	}

	prompt := promptui.Select{
		Label: "Choose a provider",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return credentials.Providers[idx], nil
}
