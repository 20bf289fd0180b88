package feedback

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/resume-optimizer/internal/api"
)

var (
	ErrNoSession         = errors.New("no active session")
	ErrEmptyHighlight    = errors.New("highlighted text is empty")
	ErrEmptyComment      = errors.New("comment is empty")
	ErrHighlightNotFound = errors.New("highlighted text is not part of the optimized content")
)

// Accumulator queues feedback items for the current session until they are
// applied. It is not safe for concurrent use; the owner serializes access.
type Accumulator struct {
	sessionID string
	content   string
	items     []api.FeedbackItem

	newID func() string
	now   func() time.Time
}

func New() *Accumulator {
	return &Accumulator{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Reset drops every pending item and binds the accumulator to a session and
// its current content. An empty sessionID leaves it unbound.
func (a *Accumulator) Reset(sessionID, content string) {
	a.sessionID = sessionID
	a.content = content
	a.items = nil
}

func (a *Accumulator) SessionID() string {
	return a.sessionID
}

// Add validates and queues a new item. Nothing changes when an error is returned.
func (a *Accumulator) Add(highlight, comment string) (api.FeedbackItem, error) {
	if a.sessionID == "" {
		return api.FeedbackItem{}, ErrNoSession
	}

	highlight = strings.TrimSpace(highlight)
	if highlight == "" {
		return api.FeedbackItem{}, ErrEmptyHighlight
	}

	comment = strings.TrimSpace(comment)
	if comment == "" {
		return api.FeedbackItem{}, ErrEmptyComment
	}

	if !strings.Contains(a.content, highlight) {
		return api.FeedbackItem{}, ErrHighlightNotFound
	}

	item := api.FeedbackItem{
		ID:               a.newID(),
		SessionID:        a.sessionID,
		SectionHighlight: highlight,
		UserComment:      comment,
		CreatedAt:        a.now(),
	}
	a.items = append(a.items, item)

	return item, nil
}

// Remove deletes the item with the given id. Unknown ids are ignored.
func (a *Accumulator) Remove(id string) bool {
	for i, item := range a.items {
		if item.ID == id {
			a.items = append(a.items[:i:i], a.items[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns a copy of the queued items in insertion order.
func (a *Accumulator) Pending() []api.FeedbackItem {
	if len(a.items) == 0 {
		return nil
	}

	out := make([]api.FeedbackItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Accumulator) Len() int {
	return len(a.items)
}

// Batch returns the wire form of every pending item, in insertion order.
func (a *Accumulator) Batch() []api.FeedbackPair {
	if len(a.items) == 0 {
		return nil
	}

	out := make([]api.FeedbackPair, 0, len(a.items))
	for _, item := range a.items {
		out = append(out, api.FeedbackPair{
			SectionHighlight: item.SectionHighlight,
			UserComment:      item.UserComment,
		})
	}
	return out
}
