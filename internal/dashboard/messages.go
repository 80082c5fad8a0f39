package dashboard

import (
	"time"

	"worktrack/internal/event"
	"worktrack/internal/ipc"
)

// tickMsg drives the once-a-second status poll.
type tickMsg time.Time

// statusMsg carries the result of a poll.
type statusMsg struct {
	status   ipc.StatusData
	timeline []event.TimelineEntry
	err      error
}

// resultMsg carries the daemon's answer to a key-bound command.
type resultMsg struct {
	text string
	err  error
}
