package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-optimizer/internal/credentials"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the AI models and the provider each one needs a key for",
	Run: func(_ *cobra.Command, _ []string) {
		for _, m := range credentials.Models() {
			marker := " "
			if m.Model == credentials.DefaultModel {
				marker = "*"
			}
			fmt.Printf("%s %-18s %-10s %s\n", marker, m.Model, m.Provider, m.Label)
		}
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
