// Package idle decides when a clocked-in user has gone inactive and when a
// deliberate gesture brings them back.
package idle

import (
	"strings"
	"time"

	"worktrack/internal/event"
)

const DefaultResumeKey = " "

// Detector is not safe for concurrent use; the controller serializes access.
type Detector struct {
	threshold    time.Duration
	resumeKey    string
	enabled      bool
	active       bool
	lastActivity time.Time
}

func NewDetector(threshold time.Duration, resumeKey string) *Detector {
	if resumeKey == "" {
		resumeKey = DefaultResumeKey
	}
	return &Detector{threshold: threshold, resumeKey: normalizeKey(resumeKey), active: true}
}

func (d *Detector) Threshold() time.Duration { return d.threshold }
func (d *Detector) Enabled() bool { return d.enabled }
func (d *Detector) Active() bool { return d.active }
func (d *Detector) LastActivity() time.Time { return d.lastActivity }
func (d *Detector) SetThreshold(t time.Duration) { d.threshold = t }

// Start (re)arms monitoring: the idle clock restarts from now and the user is
// considered active.
func (d *Detector) Start(now time.Time) {
	d.enabled = true
	d.active = true
	d.lastActivity = now
}

func (d *Detector) Stop() {
	d.enabled = false
	d.active = true
}

// Record notes an input event. Any input resets the idle clock; only the
// resume key pressed while inactive flips the user back to active, which is
// reported by the return value.
func (d *Detector) Record(in event.InputEvent, now time.Time) (resumed bool) {
	if !d.enabled {
		return false
	}
	d.lastActivity = now
	if d.active || in.Kind != event.InputKeyDown || normalizeKey(in.Key) != d.resumeKey {
		return false
	}
	d.active = true
	return true
}

// Check compares the time since the last input with the threshold and
// reports the active to inactive edge exactly once per idle period.
func (d *Detector) Check(now time.Time) (wentIdle bool) {
	if !d.enabled || !d.active {
		return false
	}
	if now.Sub(d.lastActivity) < d.threshold {
		return false
	}
	d.active = false
	return true
}

// MarkActive handles an explicit resume that did not come from the resume key.
// The idle clock never moves backwards, so input newer than now is kept.
func (d *Detector) MarkActive(now time.Time) {
	if !d.enabled {
		return
	}
	d.active = true
	if now.After(d.lastActivity) {
		d.lastActivity = now
	}
}

func normalizeKey(k string) string {
	switch strings.ToLower(k) {
	case "space", "spacebar", " ":
		return " "
	}
	return strings.ToLower(k)
}
