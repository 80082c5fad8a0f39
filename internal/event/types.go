package event

import "time"

type EventType string

const (
	EventTypeActivity        EventType = "activity"
	EventTypeClockIn         EventType = "clock_in"
	EventTypeClockOut        EventType = "clock_out"
	EventTypeBreakStart      EventType = "break_start"
	EventTypeBreakEnd        EventType = "break_end"
	EventTypeInactivityStart EventType = "inactivity_start"
	EventTypeInactivityEnd   EventType = "inactivity_end"
	EventTypeAppStart        EventType = "app_start"
	EventTypeAppStop         EventType = "app_stop"
)

// Event is the archived record stored in the database. Closed activities and
// timeline entries are both flattened into this shape.
type Event struct {
	ID          int64     `db:"id"`
	Timestamp   time.Time `db:"timestamp"`
	Type        EventType `db:"type"`
	AppName     string    `db:"app_name"`     // For activity
	WindowTitle string    `db:"window_title"` // For activity
	URL         string    `db:"url"`          // For browser activity
	Category    string    `db:"category"`
	Score       int       `db:"score"`
	Value       float64   `db:"value"` // Duration in seconds (activity, break_end, inactivity_end, clock_out)
	Tag         string    `db:"tag"`   // Activity kind, break kind
	Notes       string    `db:"notes"` // Timeline description
}

// FocusInfo is one foreground window sample.
type FocusInfo struct {
	AppName string
	Title   string
	URL     string // Empty when unknown
}

type ActivityKind string

const (
	KindApplication ActivityKind = "application"
	KindBrowser     ActivityKind = "browser"
	KindSystem      ActivityKind = "system"
)

// ActivityEntry is one continuous span of a single foreground window.
// EndTime is nil and Duration zero while the entry is open.
type ActivityEntry struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Title             string        `json:"title"`
	URL               string        `json:"url,omitempty"`
	Category          string        `json:"category"`
	ProductivityScore int           `json:"productivity_score"`
	Type              ActivityKind  `json:"type"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	Duration          time.Duration `json:"duration,omitempty"`
}

func (a ActivityEntry) Closed() bool { return a.EndTime != nil }

// Close sets EndTime and Duration together. A clock that moved backwards
// yields a zero duration rather than a negative one.
func (a *ActivityEntry) Close(now time.Time) {
	if now.Before(a.StartTime) {
		now = a.StartTime
	}
	end := now
	a.EndTime = &end
	a.Duration = now.Sub(a.StartTime)
}

// ToEvent flattens a closed activity for archiving.
func (a ActivityEntry) ToEvent() Event {
	return Event{
		Timestamp:   a.StartTime,
		Type:        EventTypeActivity,
		AppName:     a.Name,
		WindowTitle: a.Title,
		URL:         a.URL,
		Category:    a.Category,
		Score:       a.ProductivityScore,
		Value:       a.Duration.Seconds(),
		Tag:         string(a.Type),
	}
}

// ActivityFromEvent rebuilds a closed activity from its archived record.
func ActivityFromEvent(e Event) ActivityEntry {
	d := time.Duration(e.Value * float64(time.Second))
	end := e.Timestamp.Add(d)
	return ActivityEntry{
		Name:              e.AppName,
		Title:             e.WindowTitle,
		URL:               e.URL,
		Category:          e.Category,
		ProductivityScore: e.Score,
		Type:              ActivityKind(e.Tag),
		StartTime:         e.Timestamp,
		EndTime:           &end,
		Duration:          d,
	}
}

// TimelineType enumerates the user-facing session events.
type TimelineType string

const (
	TimelineClockIn         TimelineType = "clock_in"
	TimelineClockOut        TimelineType = "clock_out"
	TimelineBreakStart      TimelineType = "break_start"
	TimelineBreakEnd        TimelineType = "break_end"
	TimelineInactivityStart TimelineType = "inactivity_start"
	TimelineInactivityEnd   TimelineType = "inactivity_end"
)

type TimelineEntry struct {
	Type        TimelineType  `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration,omitempty"` // Elapsed span for *_end and clock_out
	Tag         string        `json:"tag,omitempty"`      // Break kind
}

// ToEvent flattens a timeline entry for archiving.
func (t TimelineEntry) ToEvent() Event {
	return Event{
		Timestamp: t.Timestamp,
		Type:      EventType(t.Type),
		Value:     t.Duration.Seconds(),
		Tag:       t.Tag,
		Notes:     t.Description,
	}
}

// InputKind distinguishes the input events the idle detector consumes.
type InputKind string

const (
	InputKeyDown   InputKind = "key_down"
	InputMouseMove InputKind = "mouse_move"
)

type InputEvent struct {
	Kind InputKind
	Key  string // Only for key_down
}

// Notification names emitted by the controller.
const (
	NotifyActivityStatus   = "activity_status_changed"
	NotifyResumeActivity   = "resume_activity"
	NotifyWindowFocus      = "window_focus_update"
	NotifyTimelineAppended = "timeline_appended"
	NotifyActivityChanged  = "activity_changed"
)

// Notification is pushed from the controller to the app and on to subscribers.
type Notification struct {
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Active    *bool          `json:"active,omitempty"`  // activity_status_changed
	Focused   *bool          `json:"focused,omitempty"` // window_focus_update
	Timeline  *TimelineEntry `json:"timeline,omitempty"`
	Activity  *ActivityEntry `json:"activity,omitempty"`
}

func BoolPtr(b bool) *bool { return &b }
