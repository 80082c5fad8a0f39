package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"worktrack/internal/categorizer"
	"worktrack/internal/event"
	"worktrack/internal/session"
	"worktrack/internal/stats"
)

// Public methods post onto the loop and wait. Transitions that do not apply
// in the current state report false rather than an error.

func (c *Controller) ClockIn(ctx context.Context) (bool, error) {
	return call(ctx, c, c.clockIn)
}

// ClockOut returns the final ledger, or ErrNotClockedIn.
func (c *Controller) ClockOut(ctx context.Context) (session.Ledger, error) {
	type result struct {
		ledger session.Ledger
		ok     bool
	}
	r, err := call(ctx, c, func() result {
		ledger, ok := c.clockOut()
		return result{ledger, ok}
	})
	if err != nil {
		return r.ledger, err
	}
	if !r.ok {
		return r.ledger, ErrNotClockedIn
	}
	return r.ledger, nil
}

// SetClockStatus handles clock_status_changed from a presentation layer.
func (c *Controller) SetClockStatus(ctx context.Context, clockedIn bool) (bool, error) {
	if clockedIn {
		return c.ClockIn(ctx)
	}
	_, err := c.ClockOut(ctx)
	if errors.Is(err, ErrNotClockedIn) {
		return false, nil
	}
	return err == nil, err
}

// StartMonitoring re-arms idle detection and activity sampling for the
// current session. The idle clock restarts from now.
func (c *Controller) StartMonitoring(ctx context.Context) (bool, error) {
	return call(ctx, c, func() bool {
		if !c.machine.ClockedIn() {
			return false
		}
		now := c.clock.Now()
		if c.machine.State() != session.Inactive {
			c.detector.Start(now)
		}
		c.tracker.Start()
		c.requestSample()
		return true
	})
}

func (c *Controller) StartBreak(ctx context.Context, kind session.BreakKind, planned time.Duration) (bool, error) {
	return call(ctx, c, func() bool {
		ok := c.machine.StartBreak(kind, planned, c.clock.Now())
		c.flushTimeline()
		return ok
	})
}

func (c *Controller) EndBreak(ctx context.Context) (bool, error) {
	return call(ctx, c, func() bool {
		now := c.clock.Now()
		ok := c.machine.EndBreak(now)
		if ok {
			c.detector.MarkActive(now)
		}
		c.flushTimeline()
		return ok
	})
}

// Resume leaves inactivity. It is a no-op unless the session is inactive.
func (c *Controller) Resume(ctx context.Context) (bool, error) {
	return call(ctx, c, c.resume)
}

// Input feeds one keyboard or mouse event to the idle detector.
func (c *Controller) Input(ctx context.Context, in event.InputEvent) error {
	return c.do(ctx, func() { c.input(in) })
}

// WindowFocus relays the presentation window focus. It is only broadcast
// while clocked in.
func (c *Controller) WindowFocus(ctx context.Context, focused bool) error {
	return c.do(ctx, func() {
		c.focused = focused
		if c.machine.ClockedIn() {
			c.notify(event.Notification{Name: event.NotifyWindowFocus, Focused: event.BoolPtr(focused)})
		}
	})
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	return call(ctx, c, c.status)
}

func (c *Controller) Timeline(ctx context.Context) ([]event.TimelineEntry, error) {
	return call(ctx, c, func() []event.TimelineEntry { return c.machine.Timeline() })
}

func (c *Controller) History(ctx context.Context) ([]event.ActivityEntry, error) {
	return call(ctx, c, func() []event.ActivityEntry { return c.tracker.History() })
}

func (c *Controller) Current(ctx context.Context) (*event.ActivityEntry, error) {
	return call(ctx, c, func() *event.ActivityEntry { return c.tracker.Current() })
}

func (c *Controller) Stats(ctx context.Context, w *stats.Window) (stats.Stats, error) {
	return call(ctx, c, func() stats.Stats { return c.tracker.Stats(w) })
}

func (c *Controller) ClearHistory(ctx context.Context) error {
	return c.do(ctx, func() { c.tracker.Clear() })
}

func (c *Controller) UpdateCategory(ctx context.Context, name, category string, score int) error {
	if name == "" || category == "" {
		return errors.New("update category: name and category are required")
	}
	return c.do(ctx, func() {
		c.tracker.UpdateCategory(name, category, categorizer.ClampScore(score))
	})
}

// ApplyRules installs user rules on top of the built-in tables. Used on
// startup and whenever the config file changes. It returns the number of
// application rules now in effect.
func (c *Controller) ApplyRules(apps, domains []categorizer.Rule) int {
	for _, r := range apps {
		c.cat.Set(r.Pattern, r.Category, categorizer.ClampScore(r.Score))
	}
	for _, r := range domains {
		c.cat.SetDomain(r.Pattern, r.Category, categorizer.ClampScore(r.Score))
	}
	return len(c.cat.Rules())
}

// SetInactivityThreshold changes how long the user may go without input
// before the session turns inactive. The running idle clock keeps its last
// input, so a shorter threshold can take effect on the next check.
func (c *Controller) SetInactivityThreshold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("set inactivity threshold: %s is not positive", d)
	}
	return c.do(ctx, func() {
		if c.detector.Threshold() == d {
			return
		}
		c.cfg.InactivityThreshold = d
		c.machine.SetThreshold(d)
		c.detector.SetThreshold(d)
		log.Printf("Controller: inactivity threshold set to %s", d)
	})
}
