// Package session implements the work-session state machine: clock in and
// out, breaks, inactivity, and the duration ledger that ticks while clocked in.
package session

import (
	"fmt"
	"time"

	"worktrack/internal/event"
)

type State string

const (
	NotWorking  State = "not_working"
	Working     State = "working"
	NormalBreak State = "normal_break"
	OfficeBreak State = "office_break"
	Inactive    State = "inactive"
)

type BreakKind string

const (
	BreakNormal BreakKind = "normal"
	BreakOffice BreakKind = "office"
)

func (k BreakKind) label() string {
	if k == BreakOffice {
		return "Office"
	}
	return "Normal"
}

// Policy holds the decisions left open by the product rules.
type Policy struct {
	// PayPartialOfficeBreak keeps an office break interrupted by clock-out in
	// the payable office bucket. When false the interrupted part is
	// reclassified as a normal break.
	PayPartialOfficeBreak bool
}

func DefaultPolicy() Policy {
	return Policy{PayPartialOfficeBreak: true}
}

// Snapshot is a read-only view of the machine for presentation.
type Snapshot struct {
	State         State         `json:"state"`
	Ledger        Ledger        `json:"ledger"`
	SessionStart  *time.Time    `json:"session_start,omitempty"`
	BreakKind     BreakKind     `json:"break_kind,omitempty"`
	BreakEndsAt   *time.Time    `json:"break_ends_at,omitempty"`
	BreakPlanned  time.Duration `json:"break_planned,omitempty"`
	InactiveSince *time.Time    `json:"inactive_since,omitempty"`
}

// Machine is not safe for concurrent use. Every method takes the current
// time explicitly; the caller owns the clock and serializes calls.
type Machine struct {
	threshold time.Duration
	policy    Policy

	state        State
	ledger       Ledger
	sessionStart time.Time
	lastTick     time.Time
	workingSince time.Time

	breakKind    BreakKind
	breakStart   time.Time
	breakEnd     time.Time
	breakPlanned time.Duration
	breakAccrued int64

	inactiveStart time.Time

	timeline []event.TimelineEntry
}

// New creates a machine in not_working. threshold is the idle threshold used
// to backdate the start of inactivity.
func New(threshold time.Duration, policy Policy) *Machine {
	return &Machine{threshold: threshold, policy: policy, state: NotWorking}
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Ledger() Ledger { return m.ledger }
func (m *Machine) ClockedIn() bool { return m.state != NotWorking }
func (m *Machine) SetThreshold(t time.Duration) { m.threshold = t }

func (m *Machine) onBreak() bool {
	return m.state == NormalBreak || m.state == OfficeBreak
}

// ClockIn starts a fresh ledger. Ignored when already clocked in.
func (m *Machine) ClockIn(now time.Time) bool {
	if m.state != NotWorking {
		return false
	}
	m.ledger = Ledger{}
	m.sessionStart = now
	m.lastTick = now
	m.workingSince = now
	m.state = Working
	m.appendTimeline(event.TimelineEntry{
		Type:        event.TimelineClockIn,
		Timestamp:   now,
		Description: "Clocked In",
	})
	return true
}

// Tick brings the ledger up to now. A break whose end time has passed is
// completed at exactly its end time before the rest is credited to work.
func (m *Machine) Tick(now time.Time) {
	if m.state == NotWorking {
		return
	}
	m.expireBreak(now)
	m.advance(now)
}

// advance recomputes the session time from the clock and credits the
// difference to the bucket of the current state. The clock is clamped so
// that a backwards step never produces a negative increment.
func (m *Machine) advance(now time.Time) {
	if now.Before(m.lastTick) {
		now = m.lastTick
	}
	total := int64(now.Sub(m.sessionStart) / time.Second)
	if delta := total - m.ledger.accounted(); delta > 0 {
		if b := m.ledger.bucket(m.state); b != nil {
			*b += delta
		}
		if m.onBreak() {
			m.breakAccrued += delta
		}
	}
	m.ledger.SessionTime = total
	m.ledger.PayableTime = m.ledger.WorkTime + m.ledger.OfficeBreakTime
	m.lastTick = now
}

func (m *Machine) expireBreak(now time.Time) bool {
	if !m.onBreak() || now.Before(m.breakEnd) {
		return false
	}
	m.advance(m.breakEnd)
	m.finishBreak(m.breakEnd, breakCompleted)
	return true
}

// StartBreak moves from working into a break of the given kind and planned
// length. Requests outside of working are ignored.
func (m *Machine) StartBreak(kind BreakKind, planned time.Duration, now time.Time) bool {
	if m.state != Working {
		return false
	}
	var next State
	switch kind {
	case BreakNormal:
		next = NormalBreak
	case BreakOffice:
		next = OfficeBreak
	default:
		return false
	}
	if planned < 0 {
		planned = 0
	}

	m.advance(now)
	m.state = next
	m.breakKind = kind
	m.breakStart = m.lastTick
	m.breakEnd = m.lastTick.Add(planned)
	m.breakPlanned = planned
	m.breakAccrued = 0
	m.appendTimeline(event.TimelineEntry{
		Type:        event.TimelineBreakStart,
		Timestamp:   m.lastTick,
		Description: fmt.Sprintf("Started %s Break. Planned duration: %s", kind.label(), FormatDuration(planned)),
		Tag:         string(kind),
	})
	return true
}

// EndBreak ends the current break before its planned end. If the planned end
// has already passed, the break is recorded as completed instead.
func (m *Machine) EndBreak(now time.Time) bool {
	if !m.onBreak() {
		return false
	}
	if m.expireBreak(now) {
		m.advance(now)
		return true
	}
	m.advance(now)
	m.finishBreak(m.lastTick, breakEndedEarly)
	return true
}

type breakEndReason int

const (
	breakCompleted breakEndReason = iota
	breakEndedEarly
	breakClockOut
)

func (m *Machine) finishBreak(at time.Time, reason breakEndReason) {
	actual := at.Sub(m.breakStart)
	label := m.breakKind.label()

	var desc string
	switch reason {
	case breakCompleted:
		desc = fmt.Sprintf("Ended %s Break. Completed full break duration: %s", label, FormatDuration(m.breakPlanned))
	case breakEndedEarly:
		desc = fmt.Sprintf("Ended %s Break Early. Actual break time: %s (ended %s early)",
			label, FormatDuration(actual), FormatDuration(m.breakEnd.Sub(at)))
	case breakClockOut:
		desc = fmt.Sprintf("Ended %s Break at clock-out. Actual break time: %s", label, FormatDuration(actual))
	}

	m.appendTimeline(event.TimelineEntry{
		Type:        event.TimelineBreakEnd,
		Timestamp:   at,
		Description: desc,
		Duration:    actual,
		Tag:         string(m.breakKind),
	})

	m.state = Working
	m.workingSince = at
	m.breakKind = ""
	m.breakStart = time.Time{}
	m.breakEnd = time.Time{}
	m.breakPlanned = 0
	m.breakAccrued = 0
}

// MarkInactive handles the idle signal. The user was already idle for the
// threshold before the signal fired, so up to threshold seconds of work are
// moved into inactive time. The move never reaches back past the moment the
// current working stretch began.
func (m *Machine) MarkInactive(now time.Time) bool {
	if m.state != Working {
		return false
	}
	m.advance(now)

	reclaim := int64(m.threshold / time.Second)
	if worked := int64(m.lastTick.Sub(m.workingSince) / time.Second); worked < reclaim {
		reclaim = worked
	}
	if m.ledger.WorkTime < reclaim {
		reclaim = m.ledger.WorkTime
	}
	if reclaim < 0 {
		reclaim = 0
	}
	m.ledger.WorkTime -= reclaim
	m.ledger.InactiveTime += reclaim
	m.ledger.PayableTime = m.ledger.WorkTime + m.ledger.OfficeBreakTime

	m.state = Inactive
	m.inactiveStart = m.lastTick.Add(-time.Duration(reclaim) * time.Second)
	m.appendTimeline(event.TimelineEntry{
		Type:        event.TimelineInactivityStart,
		Timestamp:   m.inactiveStart,
		Description: fmt.Sprintf("Inactivity detected after %s without input", FormatDuration(m.threshold)),
	})
	return true
}

// Resume returns from inactivity to working. Calling it in any other state
// changes nothing.
func (m *Machine) Resume(now time.Time) bool {
	if m.state != Inactive {
		return false
	}
	m.advance(now)
	idleFor := m.lastTick.Sub(m.inactiveStart)
	m.appendTimeline(event.TimelineEntry{
		Type:        event.TimelineInactivityEnd,
		Timestamp:   m.lastTick,
		Description: fmt.Sprintf("Resumed after %s of inactivity", FormatDuration(idleFor)),
		Duration:    idleFor,
	})
	m.state = Working
	m.workingSince = m.lastTick
	m.inactiveStart = time.Time{}
	return true
}

// ClockOut closes the session. A break in progress is ended first, as is
// an inactivity period. It returns the final ledger before the reset.
func (m *Machine) ClockOut(now time.Time) (Ledger, bool) {
	if m.state == NotWorking {
		return Ledger{}, false
	}
	m.Tick(now)

	if m.onBreak() {
		if m.state == OfficeBreak && !m.policy.PayPartialOfficeBreak {
			m.ledger.OfficeBreakTime -= m.breakAccrued
			m.ledger.NormalBreakTime += m.breakAccrued
			m.ledger.PayableTime = m.ledger.WorkTime + m.ledger.OfficeBreakTime
		}
		m.finishBreak(m.lastTick, breakClockOut)
	}

	if m.state == Inactive {
		idleFor := m.lastTick.Sub(m.inactiveStart)
		m.appendTimeline(event.TimelineEntry{
			Type:        event.TimelineInactivityEnd,
			Timestamp:   m.lastTick,
			Description: fmt.Sprintf("Session ended after %s of inactivity", FormatDuration(idleFor)),
			Duration:    idleFor,
		})
	}

	final := m.ledger
	m.appendTimeline(event.TimelineEntry{
		Type:      event.TimelineClockOut,
		Timestamp: m.lastTick,
		Description: fmt.Sprintf("Clocked Out. Total session time: %s. Payable time: %s",
			FormatSeconds(final.SessionTime), FormatSeconds(final.PayableTime)),
		Duration: time.Duration(final.SessionTime) * time.Second,
	})

	m.state = NotWorking
	m.ledger = Ledger{}
	m.sessionStart = time.Time{}
	m.workingSince = time.Time{}
	m.inactiveStart = time.Time{}
	return final, true
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{State: m.state, Ledger: m.ledger}
	if m.state == NotWorking {
		return s
	}
	start := m.sessionStart
	s.SessionStart = &start
	if m.onBreak() {
		end := m.breakEnd
		s.BreakKind = m.breakKind
		s.BreakEndsAt = &end
		s.BreakPlanned = m.breakPlanned
	}
	if m.state == Inactive {
		since := m.inactiveStart
		s.InactiveSince = &since
	}
	return s
}

func (m *Machine) appendTimeline(e event.TimelineEntry) {
	m.timeline = append(m.timeline, e)
}

// Timeline returns a copy of every entry recorded so far. It survives
// clock-out so that past sessions remain visible.
func (m *Machine) Timeline() []event.TimelineEntry {
	return append([]event.TimelineEntry(nil), m.timeline...)
}

func (m *Machine) TimelineLen() int { return len(m.timeline) }

// TimelineSince returns the entries appended after the first n.
func (m *Machine) TimelineSince(n int) []event.TimelineEntry {
	if n < 0 {
		n = 0
	}
	if n >= len(m.timeline) {
		return nil
	}
	return append([]event.TimelineEntry(nil), m.timeline[n:]...)
}
