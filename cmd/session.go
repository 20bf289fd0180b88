package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/orchestrator"
)

const (
	PromptShowResume     = "Show optimized resume"
	PromptShowChanges    = "Show summary and changes"
	PromptAddFeedback    = "Add feedback"
	PromptRemoveFeedback = "Remove feedback"
	PromptApplyFeedback  = "Apply feedback"
	PromptExport         = "Export to file"
	PromptStartOver      = "Start over"
)

// sessionLoop runs the actions on an active session. It returns nil when the
// user starts over.
func sessionLoop(ctx context.Context, o *orchestrator.Orchestrator, logger *zap.Logger, outputDir string) error {
	for {
		state := o.Snapshot()
		if state.Session == nil {
			return nil
		}

		applyItem := fmt.Sprintf("%s (%d pending)", PromptApplyFeedback, len(state.Feedback))
		prompt := promptui.Select{
			Label: fmt.Sprintf("Session %s", state.Session.ID),
			Items: []string{PromptShowResume, PromptShowChanges, PromptAddFeedback, PromptRemoveFeedback, applyItem, PromptExport, PromptStartOver, PromptExit},
			Size:  8,
		}

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptExit:
			return errExit
		case PromptStartOver:
			if confirm("Discard the session and its pending feedback") {
				o.StartOver()
				return nil
			}
		case PromptShowResume:
			fmt.Println(state.Session.OptimizedContent)
		case PromptShowChanges:
			fmt.Println(describeResult(state))
		case PromptAddFeedback:
			err = addFeedback(o, state.Session.OptimizedContent)
		case PromptRemoveFeedback:
			err = removeFeedback(o)
		case PromptExport:
			var path string
			path, err = exportResume(outputDir, state.Session)
			if err == nil {
				logger.Info("exported optimized resume", zap.String("filename", path))
			}
		default:
			err = applyFeedback(ctx, o, logger)
		}

		switch {
		case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
			return err
		case err != nil:
			logger.Warn("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

func addFeedback(o *orchestrator.Orchestrator, content string) error {
	highlight := promptui.Prompt{
		Label: "Passage to change (copy it from the resume)",
		Validate: func(s string) error {
			if err := notBlank(s); err != nil {
				return err
			}
			if !strings.Contains(content, strings.TrimSpace(s)) {
				return errors.New("passage not found in the resume")
			}
			return nil
		},
	}

	passage, err := highlight.Run()
	if err != nil {
		return err
	}

	comment := promptui.Prompt{
		Label:    "What should change",
		Validate: notBlank,
	}

	text, err := comment.Run()
	if err != nil {
		return err
	}

	_, err = o.AddFeedback(passage, text)
	return err
}

func removeFeedback(o *orchestrator.Orchestrator) error {
	pending := o.Snapshot().Feedback
	if len(pending) == 0 {
		return errors.New("no pending feedback")
	}

	items := make([]string, 0, len(pending)+1)
	for _, item := range pending {
		items = append(items, feedbackLabel(item))
	}

	prompt := promptui.Select{
		Label: "Choose feedback to remove",
		Items: append(items, PromptBack),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}
	if idx == len(pending) {
		return nil
	}

	o.RemoveFeedback(pending[idx].ID)
	return nil
}

func applyFeedback(ctx context.Context, o *orchestrator.Orchestrator, logger *zap.Logger) error {
	if ok, reasons := o.CanApplyFeedback(); !ok {
		return fmt.Errorf("can not apply feedback: %s", reasonsText(reasons))
	}

	session, err := o.ApplyFeedback(ctx)
	if orchestrator.IsStale(err) {
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("feedback applied", zap.String("session_id", session.ID))
	fmt.Println(session.OptimizedContent)

	return nil
}

func confirm(label string) bool {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	return err == nil
}
