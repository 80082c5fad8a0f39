// Package activity turns foreground window samples into coalesced activity
// spans and keeps the append-only history of closed spans.
package activity

import (
	"time"

	"github.com/google/uuid"

	"worktrack/internal/categorizer"
	"worktrack/internal/collector"
	"worktrack/internal/event"
	"worktrack/internal/stats"
)

// Tracker is not safe for concurrent use; the controller serializes access.
type Tracker struct {
	categorizer *categorizer.Categorizer
	current     *event.ActivityEntry
	history     []event.ActivityEntry
	tracking    bool
	newID       func() string
}

func NewTracker(c *categorizer.Categorizer) *Tracker {
	if c == nil {
		c = categorizer.New()
	}
	return &Tracker{
		categorizer: c,
		newID:       func() string { return uuid.New().String() },
	}
}

func (t *Tracker) Tracking() bool { return t.tracking }

// Start enables sampling. Calling it twice is harmless.
func (t *Tracker) Start() {
	t.tracking = true
}

// Stop disables sampling and closes the open entry, returning it if there was one.
func (t *Tracker) Stop(now time.Time) *event.ActivityEntry {
	t.tracking = false
	return t.closeCurrent(now)
}

// Observe feeds one sample. A new entry is opened only when name, title or
// url differ from the open one; the previous entry is closed first and
// returned. Unusable samples and samples while not tracking are ignored.
func (t *Tracker) Observe(info *event.FocusInfo, now time.Time) (closed *event.ActivityEntry, opened bool) {
	if !t.tracking || !collector.Usable(info) {
		return nil, false
	}

	title := info.Title
	if title == "" {
		title = info.AppName
	}

	if t.current != nil && t.current.Name == info.AppName &&
		t.current.Title == title && t.current.URL == info.URL {
		return nil, false
	}

	closed = t.closeCurrent(now)

	res := t.categorizer.Categorize(info.AppName, title, info.URL)
	t.current = &event.ActivityEntry{
		ID:                t.newID(),
		Name:              info.AppName,
		Title:             title,
		URL:               info.URL,
		Category:          res.Category,
		ProductivityScore: res.Score,
		Type:              res.Kind,
		StartTime:         now,
	}
	return closed, true
}

func (t *Tracker) closeCurrent(now time.Time) *event.ActivityEntry {
	if t.current == nil {
		return nil
	}
	entry := *t.current
	entry.Close(now)
	t.history = append(t.history, entry)
	t.current = nil
	return &entry
}

// History returns a copy of the closed entries in order.
func (t *Tracker) History() []event.ActivityEntry {
	return append([]event.ActivityEntry(nil), t.history...)
}

// Current returns a copy of the open entry, or nil.
func (t *Tracker) Current() *event.ActivityEntry {
	if t.current == nil {
		return nil
	}
	c := *t.current
	return &c
}

func (t *Tracker) Stats(w *stats.Window) stats.Stats {
	return stats.Compute(t.history, w)
}

// Clear drops the history and the open entry. Tracking state is unchanged,
// so the next usable sample opens a fresh entry.
func (t *Tracker) Clear() {
	t.history = nil
	t.current = nil
}

func (t *Tracker) UpdateCategory(name, category string, score int) {
	t.categorizer.Set(name, category, score)
}
