package orchestrator

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/logger"
)

// ResumesChanged replaces the known resumes with list. A selected resume that
// is gone gets deselected; the session built from it stays.
func (o *Orchestrator) ResumesChanged(list []*api.Resume) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.resumeList = copyResumes(list)
	if o.selectedResume != "" && o.findResumeLocked(o.selectedResume) < 0 {
		o.deselectLocked()
	}
}

// ResumeDeleted removes one resume from the known list.
func (o *Orchestrator) ResumeDeleted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if i := o.findResumeLocked(id); i >= 0 {
		o.resumeList = append(o.resumeList[:i:i], o.resumeList[i+1:]...)
	}
	if o.selectedResume == id {
		o.deselectLocked()
	}
}

func (o *Orchestrator) deselectLocked() {
	o.logger.Info("selected resume is gone, clearing selection", zap.String(logger.FieldResume, o.selectedResume))
	o.selectedResume = ""
}

// CredentialsChanged replaces the known keys and re-runs matching.
func (o *Orchestrator) CredentialsChanged(list []*api.Credential) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.keys = copyCredentials(list)
	o.rematchLocked()
}

func (o *Orchestrator) CredentialAdded(key *api.Credential) {
	if key == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, k := range o.keys {
		if k.ID == key.ID {
			return
		}
	}

	c := *key
	o.keys = append(o.keys, &c)
	o.rematchLocked()
}

func (o *Orchestrator) CredentialDeleted(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, k := range o.keys {
		if k.ID == id {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	o.rematchLocked()
}

// rematchLocked recomputes the matched key and drops a picked key that is no
// longer present or no longer fits the model.
func (o *Orchestrator) rematchLocked() {
	previous := o.credentialLocked()

	o.matched, _ = credentials.Match(o.model, o.keys)
	if o.picked != "" && !credentials.Usable(o.model, o.picked, o.keys) {
		o.logger.Info("picked credential no longer usable, clearing it",
			zap.String(logger.FieldCredential, o.picked),
			zap.String(logger.FieldModel, string(o.model)),
		)
		o.picked = ""
	}

	if current := o.credentialLocked(); current != previous {
		o.logger.Debug("credential match changed",
			zap.String("previous", previous),
			zap.String(logger.FieldCredential, current),
		)
	}
}

// DeleteResume deletes a resume in the store and then updates local state.
func (o *Orchestrator) DeleteResume(ctx context.Context, id string) error {
	if err := o.resumes.DeleteResume(ctx, id); err != nil {
		return &RemoteError{Op: OpDeleteResume, Err: err}
	}

	o.ResumeDeleted(id)
	return nil
}

// AddCredential checks the secret format, stores it and adds the masked key
// to the known list.
func (o *Orchestrator) AddCredential(ctx context.Context, provider, secret string) (*api.Credential, error) {
	p, err := credentials.ParseProvider(provider)
	if err != nil {
		return nil, &ValidationError{Op: OpAddCredential, Reasons: []Reason{ReasonInvalidSecret}, Err: err}
	}

	secret = strings.TrimSpace(secret)
	if err := credentials.ValidateSecret(p, secret); err != nil {
		return nil, &ValidationError{Op: OpAddCredential, Reasons: []Reason{ReasonInvalidSecret}, Err: err}
	}

	key, err := o.creds.CreateCredential(ctx, p.String(), secret)
	if err != nil {
		return nil, &RemoteError{Op: OpAddCredential, Err: err}
	}

	o.CredentialAdded(key)
	return key, nil
}

func (o *Orchestrator) DeleteCredential(ctx context.Context, id string) error {
	if err := o.creds.DeleteCredential(ctx, id); err != nil {
		return &RemoteError{Op: OpDeleteCredential, Err: err}
	}

	o.CredentialDeleted(id)
	return nil
}

// Refresh reloads resumes and keys concurrently. Local state changes only when
// both lists were fetched.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	var (
		resumes []*api.Resume
		keys    []*api.Credential
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resumes, err = o.resumes.ListResumes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		keys, err = o.creds.ListCredentials(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return &RemoteError{Op: OpRefresh, Err: err}
	}

	o.ResumesChanged(resumes)
	o.CredentialsChanged(keys)

	o.logger.Debug("refreshed", zap.Int("resumes", len(resumes)), zap.Int("credentials", len(keys)))
	return nil
}
