package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/orchestrator"
)

const (
	PromptSelectResume = "Select resume"
	PromptSelectModel  = "Select AI model"
	PromptPickKey      = "Pick API key"
	PromptJobURL       = "Set job description URL"
	PromptJobText      = "Paste job description text"
	PromptJobFile      = "Load job description from file"
	PromptKeepOnePage  = "Toggle keep one page"
	PromptOptimize     = "Optimize"
	PromptExit         = "Exit"
	PromptAutomaticKey = "automatic (first matching key)"
	PromptBack         = "back"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Start an interactive optimization session",
	Run: func(cmd *cobra.Command, _ []string) {
		optimize(cmd)
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringP("resume", "r", "", "resume id or title to optimize")
	optimizeCmd.Flags().StringP("model", "m", "", "AI model (see the models command)")
	optimizeCmd.Flags().StringP("key", "k", "", "id of the stored API key to use instead of the first matching one")
	optimizeCmd.Flags().StringP("job-url", "u", "", "URL of the job posting")
	optimizeCmd.Flags().StringP("job-text", "t", "", "job description text")
	optimizeCmd.Flags().StringP("job-file", "f", "", "file with the job description text")
	optimizeCmd.Flags().Bool("keep-one-page", false, "keep the optimized resume to one page")
	optimizeCmd.Flags().StringP("output-dir", "o", ".", "directory for exported resumes")

	viper.BindPFlag("optimize.model", optimizeCmd.Flags().Lookup("model"))
	viper.BindPFlag("optimize.keep-one-page", optimizeCmd.Flags().Lookup("keep-one-page"))
}

func optimize(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	logger.Info("starting the resume-optimizer", zap.String("version", version), zap.String("backend", config.AI.Backend))

	o, err := newOrchestrator(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the session", zap.Error(err))
	}

	if err := o.Refresh(ctx); err != nil {
		logger.Fatal("loading resumes and api keys", zap.Error(err))
	}

	state := o.Snapshot()
	if len(state.Resumes) == 0 {
		logger.Fatal("exiting", zap.String("reason", "no resumes found"), zap.String("hint", "upload one with the 'resumes upload' command"))
	}
	if len(state.Credentials) == 0 {
		logger.Warn("no api keys stored", zap.String("hint", "add one with the 'keys add' command"))
	}

	if err := applyFlags(cmd, o); err != nil {
		logger.Fatal("applying flags", zap.Error(err))
	}

	outputDir, _ := cmd.Flags().GetString("output-dir")

	for {
		err := setupLoop(ctx, o, logger)
		if err == nil {
			err = sessionLoop(ctx, o, logger, outputDir)
		}

		if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			logger.Info("exiting", zap.String("reason", "requested by user"))
			return
		}
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func applyFlags(cmd *cobra.Command, o *orchestrator.Orchestrator) error {
	if resume, _ := cmd.Flags().GetString("resume"); resume != "" {
		id, ok := findResume(o.Snapshot().Resumes, resume)
		if !ok {
			return fmt.Errorf("resume %q not found", resume)
		}
		if err := o.SelectResume(id); err != nil {
			return err
		}
	}

	if key, _ := cmd.Flags().GetString("key"); key != "" {
		if err := o.PickCredential(key); err != nil {
			return err
		}
	}

	jobURL, _ := cmd.Flags().GetString("job-url")
	jobText, _ := cmd.Flags().GetString("job-text")
	jobFile, _ := cmd.Flags().GetString("job-file")

	switch {
	case jobURL != "" && (jobText != "" || jobFile != ""):
		return errors.New("--job-url can not be combined with --job-text or --job-file")
	case jobText != "" && jobFile != "":
		return errors.New("--job-text can not be combined with --job-file")
	case jobURL != "":
		o.SetJobDescriptionURL(jobURL)
	case jobText != "":
		o.SetJobDescriptionText(jobText)
	case jobFile != "":
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}
		o.SetJobDescriptionText(string(data))
	}

	return nil
}

// setupLoop lets the user complete the selections. It returns nil once an
// optimization succeeded.
func setupLoop(ctx context.Context, o *orchestrator.Orchestrator, logger *zap.Logger) error {
	for {
		state := o.Snapshot()
		ok, reasons := o.CanSubmit()

		fmt.Println(describeSetup(state))

		optimizeItem := PromptOptimize
		if !ok {
			optimizeItem = fmt.Sprintf("%s (unavailable: %s)", PromptOptimize, reasonsText(reasons))
		}

		prompt := promptui.Select{
			Label: "Choose an action",
			Items: []string{optimizeItem, PromptSelectResume, PromptSelectModel, PromptPickKey, PromptJobURL, PromptJobText, PromptJobFile, PromptKeepOnePage, PromptExit},
			Size:  9,
		}

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptExit:
			return errExit
		case PromptSelectResume:
			err = selectResume(o)
		case PromptSelectModel:
			err = selectModel(o)
		case PromptPickKey:
			err = pickKey(o)
		case PromptJobURL:
			err = askJobURL(o)
		case PromptJobText:
			err = askJobText(o)
		case PromptJobFile:
			err = askJobFile(o)
		case PromptKeepOnePage:
			o.SetKeepOnePage(!state.KeepOnePage)
		default:
			if !ok {
				logger.Warn("can not optimize yet", zap.String("reasons", reasonsText(reasons)))
				continue
			}

			if err := runOptimize(ctx, o, logger); err != nil {
				logger.Error("optimization failed", zap.Error(err))
				continue
			}
			return nil
		}

		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return err
		}
		if err != nil {
			logger.Warn("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func runOptimize(ctx context.Context, o *orchestrator.Orchestrator, logger *zap.Logger) error {
	state := o.Snapshot()
	logger.Info("optimizing resume",
		zap.String("resume_id", state.SelectedResumeID),
		zap.String("model", string(state.Model)),
		zap.Bool("keep_one_page", state.KeepOnePage),
	)

	session, err := o.Optimize(ctx)
	if orchestrator.IsStale(err) {
		return nil
	}
	if err != nil {
		return err
	}

	state = o.Snapshot()
	logger.Info("resume optimized", zap.String("session_id", session.ID), zap.Int("changes", len(state.Changes)))
	fmt.Println(describeResult(state))

	return nil
}

func selectResume(o *orchestrator.Orchestrator) error {
	state := o.Snapshot()
	if len(state.Resumes) == 0 {
		return errors.New("no resumes uploaded")
	}

	items := make([]string, 0, len(state.Resumes))
	for _, r := range state.Resumes {
		items = append(items, resumeLabel(r))
	}

	prompt := promptui.Select{
		Label: "Choose a resume and press ENTER",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}

	return o.SelectResume(state.Resumes[idx].ID)
}

func selectModel(o *orchestrator.Orchestrator) error {
	state := o.Snapshot()
	models := credentials.Models()

	items := make([]string, 0, len(models))
	cursor := 0
	for i, m := range models {
		if m.Model == state.Model {
			cursor = i
		}
		items = append(items, modelLabel(m, state.Credentials))
	}

	prompt := promptui.Select{
		Label:     "Choose an AI model",
		Items:     items,
		CursorPos: cursor,
		Size:      len(items),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}

	return o.SelectModel(models[idx].Model)
}

func pickKey(o *orchestrator.Orchestrator) error {
	state := o.Snapshot()
	keys := credentials.Compatible(state.Model, state.Credentials)
	if len(keys) == 0 {
		provider, _ := credentials.ProviderFor(state.Model)
		return fmt.Errorf("no stored key for provider %s, add one with the 'keys add' command", provider)
	}

	items := []string{PromptAutomaticKey}
	for _, k := range keys {
		items = append(items, keyLabel(k))
	}

	prompt := promptui.Select{
		Label: "Choose an API key",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}

	if idx == 0 {
		return o.PickCredential("")
	}
	return o.PickCredential(keys[idx-1].ID)
}

func askJobURL(o *orchestrator.Orchestrator) error {
	prompt := promptui.Prompt{
		Label:    "Job posting URL",
		Validate: validateURL,
	}

	value, err := prompt.Run()
	if err != nil {
		return err
	}

	o.SetJobDescriptionURL(value)
	return nil
}

func askJobText(o *orchestrator.Orchestrator) error {
	prompt := promptui.Prompt{
		Label:    "Job description (single line)",
		Validate: notBlank,
	}

	value, err := prompt.Run()
	if err != nil {
		return err
	}

	o.SetJobDescriptionText(value)
	return nil
}

func askJobFile(o *orchestrator.Orchestrator) error {
	prompt := promptui.Prompt{
		Label:    "Path to job description file",
		Validate: notBlank,
	}

	path, err := prompt.Run()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("read job description: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("%s is empty", path)
	}

	o.SetJobDescriptionText(string(data))
	return nil
}
