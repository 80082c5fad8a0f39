package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"worktrack/internal/event"
	"worktrack/internal/session"
)

const DefaultSocketPath = "/tmp/worktrack.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Command Names ---

const (
	CmdPing               = "ping"
	CmdGetStatus          = "get_status"
	CmdClockIn            = "clock_in"
	CmdClockOut           = "clock_out"
	CmdClockStatusChanged = "clock_status_changed"
	CmdStartMonitoring    = "start_monitoring"
	CmdStartBreak         = "start_break"
	CmdEndBreak           = "end_break"
	CmdResume             = "resume"
	CmdInput              = "input"
	CmdWindowFocus        = "window_focus"
	CmdGetTimeline        = "get_timeline"
	CmdGetHistory         = "get_activity_history"
	CmdGetCurrent         = "get_current_activity"
	CmdGetStats           = "get_activity_stats"
	CmdClearHistory       = "clear_activity_history"
	CmdUpdateCategory     = "update_app_category"
	CmdSubscribe          = "subscribe" // Keeps the connection open for notifications
)

// --- Command Argument Structs ---

type ClockStatusArgs struct {
	ClockedIn bool `json:"clocked_in"`
}

type StartBreakArgs struct {
	Kind     session.BreakKind `json:"kind"`               // normal or office
	Duration string            `json:"duration,omitempty"` // e.g. "15m"; empty uses the configured default
}

type InputArgs struct {
	Kind event.InputKind `json:"kind"`
	Key  string          `json:"key,omitempty"`
}

type WindowFocusArgs struct {
	Focused bool `json:"focused"`
}

// StatsArgs bounds get_activity_stats. Both or neither must be set.
type StatsArgs struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type UpdateCategoryArgs struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// --- Response Data ---

type StatusData struct {
	Session         session.Snapshot     `json:"session"`
	UserActive      bool                 `json:"user_active"`
	LastInput       *time.Time           `json:"last_input,omitempty"`
	CurrentActivity *event.ActivityEntry `json:"current_activity,omitempty"`
	WindowFocused   bool                 `json:"window_focused"`
	Now             time.Time            `json:"now"`

	InactivityThresholdSeconds int64 `json:"inactivity_threshold_seconds"`
}

// MapToStruct converts a generically decoded JSON value into a typed one.
// Command args and response data both arrive as map[string]interface{}.
func MapToStruct(input interface{}, output interface{}) error {
	if input == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal args map: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal args into struct: %w", err)
	}
	return nil
}

// TransitionData reports whether a state-changing command took effect.
// Commands that do not apply in the current state succeed with Applied false.
type TransitionData struct {
	Applied bool            `json:"applied"`
	Ledger  *session.Ledger `json:"ledger,omitempty"` // Final totals for clock_out
}
