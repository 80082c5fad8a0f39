package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worktrack/internal/controller"
	"worktrack/internal/event"
	"worktrack/internal/ipc"
	"worktrack/internal/session"
	"worktrack/internal/stats"
)

const commandTimeout = 5 * time.Second

func fail(format string, args ...interface{}) ipc.Response {
	return ipc.Response{Success: false, Message: fmt.Sprintf(format, args...)}
}

func transition(applied bool, done, ignored string) ipc.Response {
	msg := done
	if !applied {
		msg = ignored
	}
	return ipc.Response{Success: true, Message: msg, Data: ipc.TransitionData{Applied: applied}}
}

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	ctx, cancel := context.WithTimeout(a.ctx, commandTimeout)
	defer cancel()

	resp, err := a.route(ctx, cmd)
	if err != nil {
		if errors.Is(err, controller.ErrStopped) || errors.Is(err, context.Canceled) {
			return fail("App is shutting down")
		}
		return fail("%s failed: %v", cmd.Name, err)
	}
	return resp
}

func (a *App) route(ctx context.Context, cmd ipc.Command) (ipc.Response, error) {
	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}, nil

	case ipc.CmdGetStatus:
		st, err := a.ctrl.Status(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Data: ipc.StatusData{
			Session:         st.Session,
			UserActive:      st.UserActive,
			LastInput:       st.LastInput,
			CurrentActivity: st.CurrentActivity,
			WindowFocused:   st.WindowFocused,
			Now:             st.Now,

			InactivityThresholdSeconds: int64(st.InactivityThreshold / time.Second),
		}}, nil

	case ipc.CmdClockIn:
		ok, err := a.ctrl.ClockIn(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok, "Clocked in", "Already clocked in"), nil

	case ipc.CmdClockOut:
		return a.clockOut(ctx)

	case ipc.CmdClockStatusChanged:
		var args ipc.ClockStatusArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		if !args.ClockedIn {
			return a.clockOut(ctx)
		}
		ok, err := a.ctrl.SetClockStatus(ctx, true)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok, "Clocked in", "Already clocked in"), nil

	case ipc.CmdStartMonitoring:
		ok, err := a.ctrl.StartMonitoring(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok, "Monitoring started", "Not clocked in; monitoring not started"), nil

	case ipc.CmdStartBreak:
		var args ipc.StartBreakArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		if args.Kind != session.BreakNormal && args.Kind != session.BreakOffice {
			return fail("Invalid break kind '%s', use 'normal' or 'office'", args.Kind), nil
		}
		planned := a.cfg.DefaultBreak()
		if args.Duration != "" {
			d, err := time.ParseDuration(args.Duration)
			if err != nil || d <= 0 {
				return fail("Invalid duration format '%s'", args.Duration), nil
			}
			planned = d
		}
		ok, err := a.ctrl.StartBreak(ctx, args.Kind, planned)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok,
			fmt.Sprintf("Started %s break (%s)", args.Kind, session.FormatDuration(planned)),
			"Not working; break request ignored"), nil

	case ipc.CmdEndBreak:
		ok, err := a.ctrl.EndBreak(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok, "Break ended", "Not on a break"), nil

	case ipc.CmdResume:
		ok, err := a.ctrl.Resume(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return transition(ok, "Resumed", "Not inactive; nothing to resume"), nil

	case ipc.CmdInput:
		var args ipc.InputArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		if args.Kind != event.InputKeyDown && args.Kind != event.InputMouseMove {
			return fail("Invalid input kind '%s'", args.Kind), nil
		}
		if err := a.ctrl.Input(ctx, event.InputEvent{Kind: args.Kind, Key: args.Key}); err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true}, nil

	case ipc.CmdWindowFocus:
		var args ipc.WindowFocusArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		if err := a.ctrl.WindowFocus(ctx, args.Focused); err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true}, nil

	case ipc.CmdGetTimeline:
		tl, err := a.ctrl.Timeline(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Data: tl}, nil

	case ipc.CmdGetHistory:
		h, err := a.ctrl.History(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Data: h}, nil

	case ipc.CmdGetCurrent:
		cur, err := a.ctrl.Current(ctx)
		if err != nil {
			return ipc.Response{}, err
		}
		if cur == nil {
			return ipc.Response{Success: true, Message: "No current activity"}, nil
		}
		return ipc.Response{Success: true, Data: cur}, nil

	case ipc.CmdGetStats:
		var args ipc.StatsArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		w, err := stats.NewWindow(args.Start, args.End)
		if err != nil {
			return fail("%v", err), nil
		}
		s, err := a.ctrl.Stats(ctx, w)
		if err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Data: s}, nil

	case ipc.CmdClearHistory:
		if err := a.ctrl.ClearHistory(ctx); err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Message: "Activity history cleared"}, nil

	case ipc.CmdUpdateCategory:
		var args ipc.UpdateCategoryArgs
		if err := ipc.MapToStruct(cmd.Args, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err), nil
		}
		if args.Name == "" || args.Category == "" {
			return fail("Application name and category cannot be empty"), nil
		}
		if err := a.ctrl.UpdateCategory(ctx, args.Name, args.Category, args.Score); err != nil {
			return ipc.Response{}, err
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("'%s' is now %s", args.Name, args.Category)}, nil

	default:
		return fail("Unknown command: %s", cmd.Name), nil
	}
}

func (a *App) clockOut(ctx context.Context) (ipc.Response, error) {
	ledger, err := a.ctrl.ClockOut(ctx)
	if errors.Is(err, controller.ErrNotClockedIn) {
		return transition(false, "", "Not clocked in"), nil
	}
	if err != nil {
		return ipc.Response{}, err
	}
	return ipc.Response{
		Success: true,
		Message: fmt.Sprintf("Clocked out. Payable time: %s", session.FormatSeconds(ledger.PayableTime)),
		Data:    ipc.TransitionData{Applied: true, Ledger: &ledger},
	}, nil
}
