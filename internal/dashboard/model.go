// Package dashboard is the terminal front end for the daemon. Besides
// showing the session it forwards every key press and mouse motion as
// input, so the user's activity in the dashboard counts as activity.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worktrack/internal/event"
	"worktrack/internal/ipc"
	"worktrack/internal/session"
)

const timelineTail = 6

// Commander is the part of ipc.Client the dashboard needs.
type Commander interface {
	Call(cmd ipc.Command, out interface{}) (ipc.Response, error)
}

// Model is the root bubbletea model.
type Model struct {
	client   Commander
	breakLen time.Duration

	status   *ipc.StatusData
	timeline []event.TimelineEntry

	message  string
	err      error
	width    int
	quitting bool
}

func New(client Commander, breakLen time.Duration) Model {
	return Model{client: client, breakLen: breakLen}
}

// Run blocks until the user quits.
func Run(client Commander, breakLen time.Duration) error {
	p := tea.NewProgram(New(client, breakLen),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		var msg statusMsg
		if _, err := client.Call(ipc.Command{Name: ipc.CmdGetStatus}, &msg.status); err != nil {
			msg.err = err
			return msg
		}
		if _, err := client.Call(ipc.Command{Name: ipc.CmdGetTimeline}, &msg.timeline); err != nil {
			msg.err = err
		}
		return msg
	}
}

func (m Model) send(cmd ipc.Command) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		resp, err := client.Call(cmd, nil)
		return resultMsg{text: resp.Message, err: err}
	}
}

// forward reports input without waiting for or showing the answer.
func (m Model) forward(cmd ipc.Command) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		client.Call(cmd, nil)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionMotion {
			return m, m.forward(ipc.Command{Name: ipc.CmdInput, Args: ipc.InputArgs{Kind: event.InputMouseMove}})
		}
		return m, nil

	case tea.FocusMsg:
		return m, m.forward(ipc.Command{Name: ipc.CmdWindowFocus, Args: ipc.WindowFocusArgs{Focused: true}})

	case tea.BlurMsg:
		return m, m.forward(ipc.Command{Name: ipc.CmdWindowFocus, Args: ipc.WindowFocusArgs{Focused: false}})

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), tick())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			st := msg.status
			m.status = &st
			m.timeline = msg.timeline
		}
		return m, nil

	case resultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.message = ""
		} else {
			m.err = nil
			m.message = msg.text
		}
		return m, m.fetch()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == keyQuit || key == keyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	cmds := []tea.Cmd{m.forward(ipc.Command{Name: ipc.CmdInput, Args: ipc.InputArgs{Kind: event.InputKeyDown, Key: key}})}

	switch key {
	case keyClockIn:
		cmds = append(cmds, m.send(ipc.Command{Name: ipc.CmdClockIn}))
	case keyClockOut:
		cmds = append(cmds, m.send(ipc.Command{Name: ipc.CmdClockOut}))
	case keyNormalBreak:
		cmds = append(cmds, m.send(m.breakCommand(session.BreakNormal)))
	case keyOfficeBreak:
		cmds = append(cmds, m.send(m.breakCommand(session.BreakOffice)))
	case keyEndBreak:
		cmds = append(cmds, m.send(ipc.Command{Name: ipc.CmdEndBreak}))
	case keyResume:
		cmds = append(cmds, m.send(ipc.Command{Name: ipc.CmdResume}))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) breakCommand(kind session.BreakKind) ipc.Command {
	args := ipc.StartBreakArgs{Kind: kind}
	if m.breakLen > 0 {
		args.Duration = m.breakLen.String()
	}
	return ipc.Command{Name: ipc.CmdStartBreak, Args: args}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("WorkTrack"))
	b.WriteString("\n\n")

	if m.status == nil {
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Cannot reach daemon: %v", m.err)))
		} else {
			b.WriteString(dimStyle.Render("Connecting..."))
		}
		b.WriteString("\n\n")
		b.WriteString(m.footer())
		return b.String()
	}

	b.WriteString(panelStyle.Render(m.sessionPanel()))
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Current activity"))
	b.WriteString("\n")
	b.WriteString(m.activityLine())
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Timeline"))
	b.WriteString("\n")
	b.WriteString(m.timelineTail())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.message != "":
		b.WriteString(dimStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func (m Model) sessionPanel() string {
	snap := m.status.Session
	l := snap.Ledger

	lines := []string{stateBadge(snap.State)}
	if snap.BreakEndsAt != nil {
		remaining := snap.BreakEndsAt.Sub(m.status.Now)
		if remaining < 0 {
			remaining = 0
		}
		lines = append(lines, row("Break left", session.FormatDuration(remaining)))
	}
	if snap.InactiveSince != nil {
		lines = append(lines, row("Idle since", snap.InactiveSince.Local().Format("15:04:05")))
	}
	lines = append(lines,
		"",
		row("Session", session.FormatSeconds(l.SessionTime)),
		row("Work", session.FormatSeconds(l.WorkTime)),
		row("Normal break", session.FormatSeconds(l.NormalBreakTime)),
		row("Office break", session.FormatSeconds(l.OfficeBreakTime)),
		row("Inactive", session.FormatSeconds(l.InactiveTime)),
		labelStyle.Render("Payable")+payableStyle.Render(session.FormatSeconds(l.PayableTime)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) activityLine() string {
	a := m.status.CurrentActivity
	if a == nil {
		return dimStyle.Render("  none")
	}
	title := a.Title
	if m.width > 40 && len([]rune(title)) > m.width-30 {
		title = string([]rune(title)[:m.width-33]) + "..."
	}
	return fmt.Sprintf("  %s %s %s",
		valueStyle.Render(a.Name),
		dimStyle.Render(fmt.Sprintf("[%s %d]", a.Category, a.ProductivityScore)),
		dimStyle.Render(title))
}

func (m Model) timelineTail() string {
	if len(m.timeline) == 0 {
		return dimStyle.Render("  nothing yet")
	}
	entries := m.timeline
	if len(entries) > timelineTail {
		entries = entries[len(entries)-timelineTail:]
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, "  "+timestampStyle.Render(e.Timestamp.Local().Format("15:04:05"))+" "+e.Description)
	}
	return strings.Join(lines, "\n")
}

func (m Model) footer() string {
	keys := []struct{ key, desc string }{
		{keyClockIn, "clock in"},
		{keyClockOut, "clock out"},
		{keyNormalBreak, "break"},
		{keyOfficeBreak, "office break"},
		{keyEndBreak, "end break"},
		{keyResume, "resume"},
		{keyQuit, "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+" "+footerDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
