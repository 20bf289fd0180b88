package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/orchestrator"
	"github.com/spigell/resume-optimizer/internal/utils"
)

const (
	unset            = "<not set>"
	jobPreviewLength = 60
)

func resumeLabel(r *api.Resume) string {
	title := r.Title
	if title == "" {
		title = "untitled"
	}
	return fmt.Sprintf("%s %s (%s, uploaded %s)", r.ID, title, r.FileType, r.CreatedAt.Format("2006-01-02"))
}

// modelLabel names the model and the key it would be sent with.
func modelLabel(m credentials.ModelInfo, keys []*api.Credential) string {
	if id, ok := credentials.Match(m.Model, keys); ok {
		return fmt.Sprintf("%s [key %s]", m.Label, id)
	}
	return fmt.Sprintf("%s [no %s key]", m.Label, m.Provider.Label())
}

func keyLabel(k *api.Credential) string {
	label := k.Provider
	if p, err := credentials.ParseProvider(k.Provider); err == nil {
		label = p.Label()
	}
	return fmt.Sprintf("%s %s %s", k.ID, label, k.MaskedKey)
}

func feedbackLabel(item api.FeedbackItem) string {
	return fmt.Sprintf("%q: %s", utils.TruncateForLog(item.SectionHighlight, 40), utils.TruncateForLog(item.UserComment, 60))
}

func reasonsText(reasons []orchestrator.Reason) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}

// findResume matches ref against resume ids first and titles second.
func findResume(resumes []*api.Resume, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	for _, r := range resumes {
		if r.ID == ref {
			return r.ID, true
		}
	}
	for _, r := range resumes {
		if strings.EqualFold(r.Title, ref) {
			return r.ID, true
		}
	}
	return "", false
}

func describeSetup(state orchestrator.State) string {
	var b strings.Builder

	resume := unset
	for _, r := range state.Resumes {
		if r.ID == state.SelectedResumeID {
			resume = resumeLabel(r)
		}
	}

	model := string(state.Model)
	if info, ok := credentials.Lookup(state.Model); ok {
		model = info.Label
	}

	key := state.CredentialID()
	switch {
	case key == "":
		key = unset
	case state.PickedCredentialID != "":
		key += " (picked)"
	default:
		key += " (matched)"
	}

	job := unset
	switch {
	case state.JobDescription.URL != "":
		job = state.JobDescription.URL
	case state.JobDescription.Text != "":
		job = utils.TruncateForLog(strings.Join(strings.Fields(state.JobDescription.Text), " "), jobPreviewLength)
	}

	fmt.Fprintf(&b, "Resume:          %s\n", resume)
	fmt.Fprintf(&b, "Model:           %s\n", model)
	fmt.Fprintf(&b, "API key:         %s\n", key)
	fmt.Fprintf(&b, "Job description: %s\n", job)
	fmt.Fprintf(&b, "Keep one page:   %t", state.KeepOnePage)

	if state.LastError != nil {
		fmt.Fprintf(&b, "\nLast error:      %s", state.LastError)
	}

	return b.String()
}

func describeResult(state orchestrator.State) string {
	var b strings.Builder

	summary := state.Summary
	if summary == "" {
		summary = "no summary"
	}
	b.WriteString("Summary: ")
	b.WriteString(summary)

	for _, change := range state.Changes {
		b.WriteString("\n  - ")
		b.WriteString(change)
	}

	return b.String()
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("value must not be empty")
	}
	return nil
}

func validateURL(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,url"); err != nil {
		return errors.New("enter a valid URL")
	}
	return nil
}

func exportFileName(sessionID string) string {
	return fmt.Sprintf("optimized_resume_%s.txt", sessionID)
}

// exportResume writes the optimized content of s into dir.
func exportResume(dir string, s *api.Session) (string, error) {
	if s == nil || s.OptimizedContent == "" {
		return "", errors.New("nothing to export")
	}

	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, exportFileName(s.ID))
	if err := os.WriteFile(path, []byte(s.OptimizedContent+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("export resume: %w", err)
	}

	return path, nil
}
