package dashboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/event"
	"worktrack/internal/ipc"
	"worktrack/internal/session"
)

type fakeCommander struct {
	mu       sync.Mutex
	sent     []ipc.Command
	status   ipc.StatusData
	timeline []event.TimelineEntry
	err      error
}

func (f *fakeCommander) Call(cmd ipc.Command, out interface{}) (ipc.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	if f.err != nil {
		return ipc.Response{}, f.err
	}
	var data interface{}
	switch cmd.Name {
	case ipc.CmdGetStatus:
		data = f.status
	case ipc.CmdGetTimeline:
		data = f.timeline
	}
	if out != nil && data != nil {
		if err := ipc.MapToStruct(data, out); err != nil {
			return ipc.Response{}, err
		}
	}
	return ipc.Response{Success: true, Message: "ok " + cmd.Name}, nil
}

func (f *fakeCommander) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		out = append(out, c.Name)
	}
	return out
}

func (f *fakeCommander) find(name string) (ipc.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.sent {
		if c.Name == name {
			return c, true
		}
	}
	return ipc.Command{}, false
}

// drain runs cmd and any batched commands it produces, returning the
// non-nil messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyPress(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyForwardedAsInput(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 15*time.Minute)

	_, cmd := m.Update(keyPress(" "))
	drain(cmd)

	c, ok := fc.find(ipc.CmdInput)
	require.True(t, ok)
	var args ipc.InputArgs
	require.NoError(t, ipc.MapToStruct(c.Args, &args))
	assert.Equal(t, event.InputKeyDown, args.Kind)
	assert.Equal(t, " ", args.Key)
}

func TestKeyBindings(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{keyClockIn, ipc.CmdClockIn},
		{keyClockOut, ipc.CmdClockOut},
		{keyNormalBreak, ipc.CmdStartBreak},
		{keyOfficeBreak, ipc.CmdStartBreak},
		{keyEndBreak, ipc.CmdEndBreak},
		{keyResume, ipc.CmdResume},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			fc := &fakeCommander{}
			m := New(fc, 15*time.Minute)
			_, cmd := m.Update(keyPress(tt.key))
			msgs := drain(cmd)

			assert.Contains(t, fc.names(), ipc.CmdInput)
			assert.Contains(t, fc.names(), tt.want)
			require.Len(t, msgs, 1)
			res, ok := msgs[0].(resultMsg)
			require.True(t, ok)
			assert.Equal(t, "ok "+tt.want, res.text)
		})
	}
}

func TestBreakKeysCarryKindAndLength(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 20*time.Minute)
	_, cmd := m.Update(keyPress(keyOfficeBreak))
	drain(cmd)

	c, ok := fc.find(ipc.CmdStartBreak)
	require.True(t, ok)
	var args ipc.StartBreakArgs
	require.NoError(t, ipc.MapToStruct(c.Args, &args))
	assert.Equal(t, session.BreakOffice, args.Kind)
	assert.Equal(t, "20m0s", args.Duration)
}

func TestQuitDoesNotForward(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 0)
	updated, cmd := m.Update(keyPress(keyQuit))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, updated.(Model).quitting)
	assert.Empty(t, fc.names())
	assert.Empty(t, updated.View())
}

func TestMouseMotionForwarded(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 0)

	_, cmd := m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Nil(t, cmd)

	_, cmd = m.Update(tea.MouseMsg{Action: tea.MouseActionMotion})
	drain(cmd)
	c, ok := fc.find(ipc.CmdInput)
	require.True(t, ok)
	var args ipc.InputArgs
	require.NoError(t, ipc.MapToStruct(c.Args, &args))
	assert.Equal(t, event.InputMouseMove, args.Kind)
}

func TestFocusRelayed(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 0)

	_, cmd := m.Update(tea.BlurMsg{})
	drain(cmd)
	c, ok := fc.find(ipc.CmdWindowFocus)
	require.True(t, ok)
	var args ipc.WindowFocusArgs
	require.NoError(t, ipc.MapToStruct(c.Args, &args))
	assert.False(t, args.Focused)
}

func TestStatusPollRendersLedger(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ends := now.Add(5 * time.Minute)
	fc := &fakeCommander{
		status: ipc.StatusData{
			Session: session.Snapshot{
				State:       session.OfficeBreak,
				BreakKind:   session.BreakOffice,
				BreakEndsAt: &ends,
				Ledger:      session.Ledger{WorkTime: 3723, OfficeBreakTime: 600, SessionTime: 4323, PayableTime: 4323},
			},
			CurrentActivity: &event.ActivityEntry{Name: "code", Category: "Development", ProductivityScore: 90, Title: "main.go"},
			Now:             now,
		},
		timeline: []event.TimelineEntry{
			{Type: event.TimelineClockIn, Timestamp: now.Add(-time.Hour), Description: "Clocked In"},
			{Type: event.TimelineBreakStart, Timestamp: now.Add(-10 * time.Minute), Description: "Started Office Break"},
		},
	}
	m := New(fc, 0)

	msgs := drain(m.fetch())
	require.Len(t, msgs, 1)
	updated, _ := m.Update(msgs[0])
	model := updated.(Model)

	require.NotNil(t, model.status)
	view := model.View()
	assert.Contains(t, view, "office_break")
	assert.Contains(t, view, "1h 02m 03s")
	assert.Contains(t, view, "5m 00s")
	assert.Contains(t, view, "code")
	assert.Contains(t, view, "Started Office Break")
}

func TestDaemonUnreachable(t *testing.T) {
	fc := &fakeCommander{err: errors.New("connection refused")}
	m := New(fc, 0)

	msgs := drain(m.fetch())
	require.Len(t, msgs, 1)
	updated, _ := m.Update(msgs[0])
	model := updated.(Model)

	assert.Nil(t, model.status)
	assert.Contains(t, model.View(), "Cannot reach daemon")
}

func TestCommandErrorShown(t *testing.T) {
	fc := &fakeCommander{}
	m := New(fc, 0)
	updated, cmd := m.Update(resultMsg{err: errors.New("start_break: Invalid break kind")})
	model := updated.(Model)
	assert.NotNil(t, cmd)
	assert.EqualError(t, model.err, "start_break: Invalid break kind")
}
