package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/auth"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the account the token belongs to",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		client, err := newClient(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		profile, err := client.GetProfile(ctx)
		if err != nil {
			logger.Fatal("getting profile", zap.Error(err))
		}

		fmt.Printf("ID:    %s\nName:  %s\nEmail: %s\n", profile.ID, profile.Name, profile.Email)

		token, _ := resolveToken(config)
		if info, err := auth.Inspect(token); err == nil && !info.ExpiresAt.IsZero() {
			fmt.Printf("Token expires at %s (%s left)\n", info.ExpiresAt.Format(time.RFC3339), info.Remaining(time.Now()).Round(time.Minute))
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the session of the token",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		client, err := newClient(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		if err := client.Logout(ctx); err != nil {
			logger.Fatal("logging out", zap.Error(err))
		}

		logger.Info("logged out", zap.String("hint", "remove the token file, it is no longer valid"))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd, logoutCmd)
}
