package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumesCmd = &cobra.Command{
	Use:   "resumes",
	Short: "Manage uploaded resumes",
}

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded resumes",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		o, err := newManager(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		if err := o.Refresh(ctx); err != nil {
			logger.Fatal("getting resumes", zap.Error(err))
		}

		resumes := o.Snapshot().Resumes
		logger.Info("getting resumes", zap.Int("count", len(resumes)))
		for _, r := range resumes {
			fmt.Println(resumeLabel(r))
		}
	},
}

var resumesUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a PDF, DOCX or TXT resume",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		logger, config := setup()

		o, err := newManager(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		last := -1
		resume, err := o.Upload(ctx, args[0], func(percent int) {
			if percent == last {
				return
			}
			last = percent
			fmt.Fprintf(os.Stderr, "\ruploading %s: %3d%%", args[0], percent)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			logger.Fatal("uploading resume", zap.Error(err))
		}

		logger.Info("resume uploaded", zap.String("id", resume.ID), zap.String("title", resume.Title))
	},
}

var resumesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an uploaded resume",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		logger, config := setup()

		o, err := newManager(config, logger)
		if err != nil {
			logger.Fatal("preparing the client", zap.Error(err))
		}

		if err := o.DeleteResume(ctx, args[0]); err != nil {
			logger.Fatal("deleting resume", zap.Error(err))
		}

		logger.Info("resume deleted", zap.String("id", args[0]))
	},
}

func init() {
	resumesCmd.AddCommand(resumesListCmd, resumesUploadCmd, resumesDeleteCmd)
	rootCmd.AddCommand(resumesCmd)
}
