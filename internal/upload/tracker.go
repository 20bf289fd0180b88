package upload

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

var ErrBusy = errors.New("another upload is in progress")

type Snapshot struct {
	ID       string
	Status   Status
	Progress int
	FileName string
	Err      error
}

// Tracker follows a single upload at a time.
type Tracker struct {
	mu    sync.Mutex
	state Snapshot
	newID func() string
}

func NewTracker() *Tracker {
	return &Tracker{
		state: Snapshot{Status: StatusIdle},
		newID: uuid.NewString,
	}
}

// Begin starts tracking a new upload and returns its id. It fails with ErrBusy
// while another upload is running.
func (t *Tracker) Begin(fileName string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status == StatusUploading {
		return "", ErrBusy
	}

	t.state = Snapshot{
		ID:       t.newID(),
		Status:   StatusUploading,
		FileName: fileName,
	}

	return t.state.ID, nil
}

// Progress records the percentage of the upload. Values are clamped to 0-100
// and never move backwards. Updates for other uploads are ignored.
func (t *Tracker) Progress(id string, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id != t.state.ID || t.state.Status != StatusUploading {
		return
	}

	percent = max(0, min(percent, 100))
	if percent > t.state.Progress {
		t.state.Progress = percent
	}
}

// Complete marks the upload as done. It returns true only for the first
// completion of that upload.
func (t *Tracker) Complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == "" || id != t.state.ID || t.state.Status != StatusUploading {
		return false
	}

	t.state.Status = StatusDone
	t.state.Progress = 100
	t.state.Err = nil

	return true
}

// Fail marks the upload as failed and resets its progress.
func (t *Tracker) Fail(id string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == "" || id != t.state.ID || t.state.Status != StatusUploading {
		return false
	}

	t.state.Status = StatusFailed
	t.state.Progress = 0
	t.state.Err = err

	return true
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state.Status == StatusUploading
}
