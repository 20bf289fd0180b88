package orchestrator

import (
	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/upload"
)

type Status string

const (
	StatusIdle             Status = "idle"
	StatusSubmitting       Status = "submitting"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
	StatusApplyingFeedback Status = "applying-feedback"
)

type JobDescription struct {
	URL  string
	Text string
}

// State is a point-in-time copy of the orchestrator. Changing it has no effect
// on the orchestrator.
type State struct {
	Status     Status
	Generation uint64

	Resumes          []*api.Resume
	SelectedResumeID string

	Credentials []*api.Credential
	Model       credentials.Model
	// MatchedCredentialID is the first stored key fitting Model.
	MatchedCredentialID string
	// PickedCredentialID is a key chosen by the user, always compatible with Model.
	PickedCredentialID string

	KeepOnePage    bool
	JobDescription JobDescription

	Session *api.Session
	Summary string
	Changes []string

	Feedback  []api.FeedbackItem
	LastError error

	Upload upload.Snapshot
}

// CredentialID is the key an optimize request would use.
func (s State) CredentialID() string {
	if s.PickedCredentialID != "" {
		return s.PickedCredentialID
	}
	return s.MatchedCredentialID
}

func copySession(s *api.Session) *api.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyResumes(list []*api.Resume) []*api.Resume {
	if list == nil {
		return nil
	}
	out := make([]*api.Resume, 0, len(list))
	for _, r := range list {
		if r == nil {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out
}

func copyCredentials(list []*api.Credential) []*api.Credential {
	if list == nil {
		return nil
	}
	out := make([]*api.Credential, 0, len(list))
	for _, k := range list {
		if k == nil {
			continue
		}
		c := *k
		out = append(out, &c)
	}
	return out
}
