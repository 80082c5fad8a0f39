// Package stats reduces activity history into productivity totals.
package stats

import (
	"errors"
	"time"

	"worktrack/internal/event"
)

const (
	ProductiveThreshold   = 75
	UnproductiveThreshold = 25
)

var ErrInvalidWindow = errors.New("stats window requires start before end")

// Window bounds a stats query. Both ends are required.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates the bounds. A nil start or end means no window at all;
// supplying only one of them is an error.
func NewWindow(start, end *time.Time) (*Window, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil || end.Before(*start) {
		return nil, ErrInvalidWindow
	}
	return &Window{Start: *start, End: *end}, nil
}

type Stats struct {
	TotalTime                time.Duration            `json:"total_time"`
	ProductiveTime           time.Duration            `json:"productive_time"`
	UnproductiveTime         time.Duration            `json:"unproductive_time"`
	NeutralTime              time.Duration            `json:"neutral_time"`
	AverageProductivityScore float64                  `json:"average_productivity_score"`
	ApplicationBreakdown     map[string]time.Duration `json:"application_breakdown"`
	CategoryBreakdown        map[string]time.Duration `json:"category_breakdown"`
	Entries                  int                      `json:"entries"`
}

// Compute reduces closed entries. With a window, entries overlapping it are
// included and only the overlapping part of each duration is counted. Open
// entries are skipped. The input is never modified.
func Compute(history []event.ActivityEntry, w *Window) Stats {
	s := Stats{
		ApplicationBreakdown: make(map[string]time.Duration),
		CategoryBreakdown:    make(map[string]time.Duration),
	}

	totalScore := 0
	for _, a := range history {
		if !a.Closed() {
			continue
		}
		d := a.Duration
		if w != nil {
			var ok bool
			if d, ok = overlap(a, *w); !ok {
				continue
			}
		}

		s.TotalTime += d
		s.ApplicationBreakdown[a.Name] += d
		s.CategoryBreakdown[a.Category] += d

		switch {
		case a.ProductivityScore >= ProductiveThreshold:
			s.ProductiveTime += d
		case a.ProductivityScore <= UnproductiveThreshold:
			s.UnproductiveTime += d
		default:
			s.NeutralTime += d
		}

		totalScore += a.ProductivityScore
		s.Entries++
	}

	if s.Entries > 0 {
		s.AverageProductivityScore = float64(totalScore) / float64(s.Entries)
	}
	return s
}

func overlap(a event.ActivityEntry, w Window) (time.Duration, bool) {
	start, end := a.StartTime, *a.EndTime
	if !end.After(w.Start) || !start.Before(w.End) {
		return 0, false
	}
	if start.Before(w.Start) {
		start = w.Start
	}
	if end.After(w.End) {
		end = w.End
	}
	return end.Sub(start), true
}
