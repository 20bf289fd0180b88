package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/logger"
)

var (
	errNoSession = errors.New("backend returned no session")
	errNoContent = errors.New("backend returned no optimized content")
)

// Optimize sends the current selections to the optimization backend. Unmet
// preconditions fail with a ValidationError before anything is sent. A result
// arriving after StartOver is dropped with a StaleResponseError.
func (o *Orchestrator) Optimize(ctx context.Context) (*api.Session, error) {
	o.mu.Lock()
	req, reasons := o.optimizeRequestLocked()
	if len(reasons) > 0 {
		o.mu.Unlock()
		return nil, &ValidationError{Op: OpOptimize, Reasons: reasons}
	}

	o.status = StatusSubmitting
	o.inFlight = true
	o.lastErr = nil
	issued := o.generation
	log := o.sessionLogger(StatusSubmitting)
	o.mu.Unlock()

	log.Info("optimize requested",
		zap.String(logger.FieldResume, req.ResumeID),
		zap.Bool("keep_one_page", req.KeepOnePage),
		zap.Bool("job_description_url", req.JobDescriptionURL != ""),
	)

	result, err := o.optimizer.Optimize(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if issued != o.generation {
		log.Debug("discarding stale optimize response", zap.Uint64("current_generation", o.generation))
		return nil, &StaleResponseError{Op: OpOptimize, Issued: issued, Current: o.generation}
	}

	o.inFlight = false

	if err == nil {
		err = checkResult(result)
	}
	if err != nil {
		remote := &RemoteError{Op: OpOptimize, Err: err}
		o.status = StatusFailed
		o.session = nil
		o.summary = ""
		o.changes = nil
		o.lastErr = remote
		o.feedback.Reset("", "")
		log.Warn("optimize failed", zap.Error(err))
		return nil, remote
	}

	session := copySession(result.Session)
	session.Status = api.SessionCompleted

	o.session = session
	o.summary = result.Summary
	o.changes = append([]string(nil), result.Changes...)
	o.status = StatusCompleted
	o.feedback.Reset(session.ID, session.OptimizedContent)

	o.sessionLogger(StatusCompleted).Info("optimize completed", zap.Int("changes", len(o.changes)))

	return copySession(session), nil
}

func checkResult(result *api.OptimizationResult) error {
	if result == nil || result.Session == nil || result.Session.ID == "" {
		return errNoSession
	}
	if result.Session.Status == api.SessionFailed {
		return errors.New("optimization session failed on the backend")
	}
	if result.Session.OptimizedContent == "" {
		return errNoContent
	}
	return nil
}

// ApplyFeedback sends every pending feedback item of the session in one batch.
// With nothing queued it does nothing and returns (nil, nil). On success the
// content is replaced and the whole queue is cleared, including items added
// while the request was in flight. On failure the content and queue are kept.
func (o *Orchestrator) ApplyFeedback(ctx context.Context) (*api.Session, error) {
	o.mu.Lock()
	if reasons := o.applyReasonsLocked(); len(reasons) > 0 {
		o.mu.Unlock()
		return nil, &ValidationError{Op: OpApplyFeedback, Reasons: reasons}
	}

	batch := o.feedback.Batch()
	if len(batch) == 0 {
		o.mu.Unlock()
		return nil, nil
	}

	o.status = StatusApplyingFeedback
	o.inFlight = true
	o.lastErr = nil
	issued := o.generation
	sessionID := o.session.ID
	log := o.sessionLogger(StatusApplyingFeedback)
	o.mu.Unlock()

	log.Info("applying feedback", zap.Int("items", len(batch)))

	updated, err := o.optimizer.ApplyFeedback(ctx, sessionID, batch)

	o.mu.Lock()
	defer o.mu.Unlock()

	if issued != o.generation {
		log.Debug("discarding stale feedback response", zap.Uint64("current_generation", o.generation))
		return nil, &StaleResponseError{Op: OpApplyFeedback, Issued: issued, Current: o.generation}
	}

	o.inFlight = false
	o.status = StatusCompleted

	if err == nil && (updated == nil || updated.OptimizedContent == "") {
		err = errNoContent
	}
	if err != nil {
		remote := &RemoteError{Op: OpApplyFeedback, Err: err}
		o.lastErr = remote
		log.Warn("apply feedback failed", zap.Error(err), zap.Int("pending", o.feedback.Len()))
		return nil, remote
	}

	o.session.OptimizedContent = updated.OptimizedContent
	o.session.Status = api.SessionCompleted
	o.session.UpdatedAt = updated.UpdatedAt
	if o.session.UpdatedAt.IsZero() {
		o.session.UpdatedAt = o.now()
	}
	o.feedback.Reset(o.session.ID, o.session.OptimizedContent)

	o.sessionLogger(StatusCompleted).Info("feedback applied", zap.Int("items", len(batch)))

	return copySession(o.session), nil
}

// StartOver drops the session and its feedback locally. The backend keeps the
// session. Responses of requests still in flight will be discarded.
func (o *Orchestrator) StartOver() {
	o.mu.Lock()
	defer o.mu.Unlock()

	previous := o.status
	o.generation++
	o.status = StatusIdle
	o.inFlight = false
	o.session = nil
	o.summary = ""
	o.changes = nil
	o.lastErr = nil
	o.feedback.Reset("", "")

	o.sessionLogger(StatusIdle).Info("started over", zap.String("previous_status", string(previous)))
}

// AddFeedback queues a comment on a passage of the current optimized content.
func (o *Orchestrator) AddFeedback(highlight, comment string) (api.FeedbackItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return api.FeedbackItem{}, &ValidationError{Op: OpAddFeedback, Reasons: []Reason{ReasonNoSession}}
	}

	item, err := o.feedback.Add(highlight, comment)
	if err != nil {
		return api.FeedbackItem{}, &ValidationError{Op: OpAddFeedback, Reasons: []Reason{ReasonInvalidFeedback}, Err: err}
	}

	o.logger.Debug("feedback queued",
		zap.String("feedback_id", item.ID),
		zap.Int("pending", o.feedback.Len()),
	)

	return item, nil
}

// RemoveFeedback drops a pending item. Unknown ids are ignored.
func (o *Orchestrator) RemoveFeedback(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.feedback.Remove(id)
}
