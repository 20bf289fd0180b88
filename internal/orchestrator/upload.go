package orchestrator

import (
	"context"
	"errors"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/logger"
	"github.com/spigell/resume-optimizer/internal/upload"
)

// Upload sends a resume file to the store. It is refused while another upload
// runs. onProgress, when set, receives the tracked percentage.
func (o *Orchestrator) Upload(ctx context.Context, path string, onProgress func(percent int)) (*api.Resume, error) {
	id, err := o.uploads.Begin(filepath.Base(path))
	if errors.Is(err, upload.ErrBusy) {
		return nil, &ValidationError{Op: OpUpload, Reasons: []Reason{ReasonUploadInFlight}, Err: err}
	}
	if err != nil {
		return nil, err
	}

	report := func(percent int) {
		o.uploads.Progress(id, percent)
		if onProgress != nil {
			onProgress(o.uploads.Snapshot().Progress)
		}
	}

	o.logger.Info("uploading resume", zap.String("file", path), zap.String("upload_id", id))

	resume, err := o.resumes.UploadResume(ctx, path, report)
	if err == nil && (resume == nil || resume.ID == "") {
		err = errors.New("store returned no resume")
	}
	if err != nil {
		o.uploads.Fail(id, err)
		o.logger.Warn("resume upload failed", zap.String("file", path), zap.Error(err))
		return nil, &RemoteError{Op: OpUpload, Err: err}
	}

	o.ResumeUploaded(id, resume)
	if onProgress != nil {
		onProgress(100)
	}

	return resume, nil
}

// ResumeUploaded records the completion of an upload. The resume is appended
// only for the first completion of that upload and only when its id is new.
func (o *Orchestrator) ResumeUploaded(uploadID string, resume *api.Resume) bool {
	if resume == nil || !o.uploads.Complete(uploadID) {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.findResumeLocked(resume.ID) >= 0 {
		return false
	}

	c := *resume
	o.resumeList = append(o.resumeList, &c)
	o.logger.Info("resume uploaded", zap.String(logger.FieldResume, resume.ID), zap.String("title", resume.Title))

	return true
}
