package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/ai"
	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
	"github.com/spigell/resume-optimizer/internal/feedback"
	"github.com/spigell/resume-optimizer/internal/logger"
	"github.com/spigell/resume-optimizer/internal/upload"
)

// Optimizer is the AI optimization backend.
type Optimizer = ai.Assistant

type ResumeStore interface {
	ListResumes(ctx context.Context) ([]*api.Resume, error)
	UploadResume(ctx context.Context, path string, progress api.ProgressFunc) (*api.Resume, error)
	DeleteResume(ctx context.Context, id string) error
}

type CredentialStore interface {
	ListCredentials(ctx context.Context) ([]*api.Credential, error)
	CreateCredential(ctx context.Context, provider, secret string) (*api.Credential, error)
	DeleteCredential(ctx context.Context, id string) error
}

type Deps struct {
	Optimizer   Optimizer
	Resumes     ResumeStore
	Credentials CredentialStore
	Logger      *zap.Logger
}

type Options struct {
	Model       credentials.Model
	KeepOnePage bool
}

// Orchestrator owns the state of one optimization workflow: the selected
// resume, model and key, the session and its pending feedback. Every change
// goes through its methods; readers get copies via Snapshot.
type Orchestrator struct {
	optimizer Optimizer
	resumes   ResumeStore
	creds     CredentialStore
	logger    *zap.Logger

	mu sync.Mutex

	status     Status
	generation uint64
	inFlight   bool

	resumeList     []*api.Resume
	selectedResume string

	keys    []*api.Credential
	model   credentials.Model
	matched string
	picked  string

	keepOnePage bool
	jd          JobDescription

	session *api.Session
	summary string
	changes []string
	lastErr error

	feedback *feedback.Accumulator
	uploads  *upload.Tracker

	now func() time.Time
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Optimizer == nil {
		return nil, errors.New("optimizer is required")
	}
	if deps.Resumes == nil {
		return nil, errors.New("resume store is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("credential store is required")
	}

	model := opts.Model
	if model == "" {
		model = credentials.DefaultModel
	}
	if _, ok := credentials.Lookup(model); !ok {
		return nil, &ValidationError{Op: OpSelectModel, Reasons: []Reason{ReasonUnknownModel}}
	}

	return &Orchestrator{
		optimizer:   deps.Optimizer,
		resumes:     deps.Resumes,
		creds:       deps.Credentials,
		logger:      logger.WithFields(deps.Logger),
		status:      StatusIdle,
		model:       model,
		keepOnePage: opts.KeepOnePage,
		feedback:    feedback.New(),
		uploads:     upload.NewTracker(),
		now:         time.Now,
	}, nil
}

func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return State{
		Status:              o.status,
		Generation:          o.generation,
		Resumes:             copyResumes(o.resumeList),
		SelectedResumeID:    o.selectedResume,
		Credentials:         copyCredentials(o.keys),
		Model:               o.model,
		MatchedCredentialID: o.matched,
		PickedCredentialID:  o.picked,
		KeepOnePage:         o.keepOnePage,
		JobDescription:      o.jd,
		Session:             copySession(o.session),
		Summary:             o.summary,
		Changes:             append([]string(nil), o.changes...),
		Feedback:            o.feedback.Pending(),
		LastError:           o.lastErr,
		Upload:              o.uploads.Snapshot(),
	}
}

// SelectResume selects one of the known resumes. An empty id clears the selection.
func (o *Orchestrator) SelectResume(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id = strings.TrimSpace(id)
	if id != "" && o.findResumeLocked(id) < 0 {
		return &ValidationError{Op: OpSelectResume, Reasons: []Reason{ReasonUnknownResume}}
	}

	o.selectedResume = id
	o.logger.Debug("resume selected", zap.String(logger.FieldResume, id))

	return nil
}

// SelectModel switches the model and re-runs credential matching. A request
// already in flight keeps the model it was issued with.
func (o *Orchestrator) SelectModel(m credentials.Model) error {
	info, ok := credentials.Lookup(m)
	if !ok {
		return &ValidationError{Op: OpSelectModel, Reasons: []Reason{ReasonUnknownModel}}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.model = m
	o.rematchLocked()
	o.logger.Debug("model selected",
		append(logger.CommonFields(info.Provider.String(), string(m)), zap.String(logger.FieldCredential, o.credentialLocked()))...,
	)

	return nil
}

// PickCredential overrides the automatic match with a compatible key. An
// empty id returns to the automatic match.
func (o *Orchestrator) PickCredential(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id = strings.TrimSpace(id)
	if id != "" && !credentials.Usable(o.model, id, o.keys) {
		return &ValidationError{Op: OpPickCredential, Reasons: []Reason{ReasonIncompatibleCredential}}
	}

	o.picked = id
	return nil
}

// SetJobDescriptionURL sets the job posting URL and clears the pasted text.
func (o *Orchestrator) SetJobDescriptionURL(u string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.jd = JobDescription{URL: strings.TrimSpace(u)}
}

// SetJobDescriptionText sets the pasted job description and clears the URL.
func (o *Orchestrator) SetJobDescriptionText(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.jd = JobDescription{Text: strings.TrimSpace(text)}
}

func (o *Orchestrator) SetKeepOnePage(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.keepOnePage = v
}

// CanSubmit reports whether Optimize would be accepted now, and if not, why.
func (o *Orchestrator) CanSubmit() (bool, []Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, reasons := o.optimizeRequestLocked()
	return len(reasons) == 0, reasons
}

// CanApplyFeedback reports whether ApplyFeedback would send a request now.
func (o *Orchestrator) CanApplyFeedback() (bool, []Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()

	reasons := o.applyReasonsLocked()
	if len(reasons) == 0 && o.feedback.Len() == 0 {
		reasons = append(reasons, ReasonNoFeedback)
	}
	return len(reasons) == 0, reasons
}

func (o *Orchestrator) credentialLocked() string {
	if o.picked != "" {
		return o.picked
	}
	return o.matched
}

// optimizeRequestLocked builds the request for the current selections and
// lists every unmet precondition.
func (o *Orchestrator) optimizeRequestLocked() (*api.OptimizeRequest, []Reason) {
	var reasons []Reason
	add := func(r Reason) {
		for _, got := range reasons {
			if got == r {
				return
			}
		}
		reasons = append(reasons, r)
	}

	if o.inFlight {
		add(ReasonInFlight)
	}
	if o.session != nil {
		add(ReasonSessionActive)
	}
	if _, ok := credentials.Lookup(o.model); !ok {
		add(ReasonUnknownModel)
	}

	req := &api.OptimizeRequest{
		ResumeID:           o.selectedResume,
		JobDescriptionURL:  o.jd.URL,
		JobDescriptionText: o.jd.Text,
		AIModel:            string(o.model),
		KeepOnePage:        o.keepOnePage,
		CredentialID:       o.credentialLocked(),
	}

	if err := req.Validate(); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			add(Reason(err.Error()))
		}
		for _, fe := range fieldErrs {
			add(reasonFor(fe))
		}
	}

	if len(reasons) > 0 {
		return nil, reasons
	}
	return req, nil
}

func reasonFor(fe validator.FieldError) Reason {
	switch fe.StructField() {
	case "ResumeID":
		return ReasonNoResume
	case "JobDescriptionText":
		return ReasonNoJobDescription
	case "JobDescriptionURL":
		if fe.Tag() == "excluded_with" {
			return ReasonAmbiguousJobDescription
		}
		return ReasonInvalidJobDescriptionURL
	case "AIModel":
		return ReasonUnknownModel
	case "CredentialID":
		return ReasonNoCredential
	}
	return Reason(fe.Error())
}

func (o *Orchestrator) applyReasonsLocked() []Reason {
	var reasons []Reason
	if o.inFlight {
		reasons = append(reasons, ReasonInFlight)
	}
	if o.session == nil {
		reasons = append(reasons, ReasonNoSession)
	}
	return reasons
}

func (o *Orchestrator) findResumeLocked(id string) int {
	for i, r := range o.resumeList {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) sessionLogger(status Status) *zap.Logger {
	sessionID := ""
	if o.session != nil {
		sessionID = o.session.ID
	}

	info, _ := credentials.Lookup(o.model)
	fields := logger.SessionFields(sessionID, o.generation, string(status))
	fields = append(fields, logger.CommonFields(info.Provider.String(), string(o.model))...)

	return logger.WithFields(o.logger, fields...)
}
