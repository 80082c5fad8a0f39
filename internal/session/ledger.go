package session

import (
	"fmt"
	"time"
)

// Ledger holds the per-session durations in whole seconds.
// Work + NormalBreak + OfficeBreak + Inactive always equals Session, and
// Payable always equals Work + OfficeBreak.
type Ledger struct {
	WorkTime        int64 `json:"work_time"`
	NormalBreakTime int64 `json:"normal_break_time"`
	OfficeBreakTime int64 `json:"office_break_time"`
	InactiveTime    int64 `json:"inactive_time"`
	SessionTime     int64 `json:"session_time"`
	PayableTime     int64 `json:"payable_time"`
}

func (l Ledger) accounted() int64 {
	return l.WorkTime + l.NormalBreakTime + l.OfficeBreakTime + l.InactiveTime
}

// bucket returns the field that accrues while in state s.
func (l *Ledger) bucket(s State) *int64 {
	switch s {
	case Working:
		return &l.WorkTime
	case NormalBreak:
		return &l.NormalBreakTime
	case OfficeBreak:
		return &l.OfficeBreakTime
	case Inactive:
		return &l.InactiveTime
	}
	return nil
}

// FormatSeconds renders a duration as "1h 02m 03s" or "2m 05s".
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func FormatDuration(d time.Duration) string {
	return FormatSeconds(int64(d / time.Second))
}
