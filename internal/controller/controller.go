// Package controller owns the session machine, the idle detector and the
// activity tracker, and serializes every change to them on one goroutine.
package controller

import (
	"context"
	"errors"
	"log"
	"time"

	"worktrack/internal/activity"
	"worktrack/internal/categorizer"
	"worktrack/internal/clock"
	"worktrack/internal/collector"
	"worktrack/internal/event"
	"worktrack/internal/idle"
	"worktrack/internal/session"
)

var (
	ErrStopped      = errors.New("controller stopped")
	ErrNotClockedIn = errors.New("not clocked in")
)

type Config struct {
	TickInterval        time.Duration
	IdleCheckInterval   time.Duration
	SampleInterval      time.Duration
	InactivityThreshold time.Duration
	ResumeKey           string
	Policy              session.Policy
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.IdleCheckInterval <= 0 {
		c.IdleCheckInterval = time.Second
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = time.Second
	}
	if c.InactivityThreshold <= 0 {
		c.InactivityThreshold = 50 * time.Second
	}
}

// Status is the read model returned by get_status.
type Status struct {
	Session         session.Snapshot     `json:"session"`
	UserActive      bool                 `json:"user_active"`
	LastInput       *time.Time           `json:"last_input,omitempty"`
	CurrentActivity *event.ActivityEntry `json:"current_activity,omitempty"`
	WindowFocused   bool                 `json:"window_focused"`
	Now             time.Time            `json:"now"`

	InactivityThreshold time.Duration `json:"inactivity_threshold"`
}

type sampleResult struct {
	gen  uint64
	info *event.FocusInfo
	err  error
}

type Controller struct {
	cfg      Config
	clock    clock.Clock
	source   collector.Source
	machine  *session.Machine
	detector *idle.Detector
	tracker  *activity.Tracker
	cat      *categorizer.Categorizer

	cmdChan       chan func()
	sampleResults chan sampleResult
	updateChan    chan<- event.Notification // Notifications for subscribers
	eventChan     chan<- event.Event        // Records for the archive, may be nil

	// Owned by the loop goroutine.
	tickTicker   *time.Ticker
	idleTicker   *time.Ticker
	sampleTicker *time.Ticker
	sampling     bool
	generation   uint64
	lastErr      string
	timelineSeen int
	focused      bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, src collector.Source, clk clock.Clock, cat *categorizer.Categorizer,
	updateChan chan<- event.Notification, eventChan chan<- event.Event) *Controller {
	cfg.applyDefaults()
	if src == nil {
		src = collector.None
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cat == nil {
		cat = categorizer.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:           cfg,
		clock:         clk,
		source:        src,
		machine:       session.New(cfg.InactivityThreshold, cfg.Policy),
		detector:      idle.NewDetector(cfg.InactivityThreshold, cfg.ResumeKey),
		tracker:       activity.NewTracker(cat),
		cat:           cat,
		cmdChan:       make(chan func(), 10),
		sampleResults: make(chan sampleResult, 1),
		updateChan:    updateChan,
		eventChan:     eventChan,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
}

func (c *Controller) Start() {
	log.Println("Starting Session Controller")
	go c.runLoop()
}

// Stop cancels the loop and waits for it to exit. An open activity is not
// archived; callers clock out first when they want it persisted.
func (c *Controller) Stop() {
	log.Println("Stopping Session Controller")
	c.cancel()
	<-c.done
}

func (c *Controller) runLoop() {
	defer close(c.done)
	defer log.Println("Session Controller loop stopped.")

	for {
		c.syncTickers()

		// Nil channels block forever, so periodic work only runs while clocked in.
		var tickC, idleC, sampleC <-chan time.Time
		if c.tickTicker != nil {
			tickC = c.tickTicker.C
			idleC = c.idleTicker.C
			sampleC = c.sampleTicker.C
		}

		select {
		case <-c.ctx.Done():
			c.stopTickers()
			return
		case fn := <-c.cmdChan:
			fn()
		case <-tickC:
			c.handleTick()
		case <-idleC:
			c.handleIdleCheck()
		case <-sampleC:
			c.requestSample()
		case r := <-c.sampleResults:
			c.handleSample(r)
		}
	}
}

func (c *Controller) syncTickers() {
	clockedIn := c.machine.ClockedIn()
	switch {
	case clockedIn && c.tickTicker == nil:
		c.tickTicker = time.NewTicker(c.cfg.TickInterval)
		c.idleTicker = time.NewTicker(c.cfg.IdleCheckInterval)
		c.sampleTicker = time.NewTicker(c.cfg.SampleInterval)
	case !clockedIn && c.tickTicker != nil:
		c.stopTickers()
	}
}

func (c *Controller) stopTickers() {
	for _, t := range []*time.Ticker{c.tickTicker, c.idleTicker, c.sampleTicker} {
		if t != nil {
			t.Stop()
		}
	}
	c.tickTicker, c.idleTicker, c.sampleTicker = nil, nil, nil
}

// do runs fn on the loop goroutine and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	_, err := call(ctx, c, func() struct{} {
		fn()
		return struct{}{}
	})
	return err
}

// call runs fn on the loop goroutine and returns its result. The result
// travels over a buffered channel, so a caller that gives up early shares
// nothing with the closure the loop may still run.
func call[T any](ctx context.Context, c *Controller, fn func() T) (T, error) {
	var zero T
	res := make(chan T, 1)
	wrapped := func() { res <- fn() }
	select {
	case c.cmdChan <- wrapped:
	case <-c.ctx.Done():
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-res:
		return v, nil
	case <-c.ctx.Done():
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// --- Periodic handlers ---

func (c *Controller) handleTick() {
	if !c.machine.ClockedIn() {
		return
	}
	c.tick(c.clock.Now())
	c.flushTimeline()
}

// tick advances the ledger. When a break runs out, the idle clock restarts
// at the break's planned end rather than at the last idle check.
func (c *Controller) tick(now time.Time) {
	before := c.machine.Snapshot()
	c.machine.Tick(now)
	if before.BreakEndsAt != nil && c.machine.State() == session.Working {
		c.detector.MarkActive(*before.BreakEndsAt)
	}
}

func (c *Controller) handleIdleCheck() {
	now := c.clock.Now()
	if c.machine.ClockedIn() {
		c.tick(now)
	}
	switch c.machine.State() {
	case session.NormalBreak, session.OfficeBreak:
		// The idle clock is held during breaks and restarts when work resumes.
		c.detector.MarkActive(now)
		return
	case session.Working:
	default:
		return
	}
	if !c.detector.Check(now) {
		return
	}
	if c.machine.MarkInactive(now) {
		log.Printf("Controller: inactivity detected (threshold %s)", c.detector.Threshold())
		c.notify(event.Notification{Name: event.NotifyActivityStatus, Active: event.BoolPtr(false)})
	}
	c.flushTimeline()
}

func (c *Controller) requestSample() {
	if !c.machine.ClockedIn() || c.sampling {
		return
	}
	c.sampling = true
	gen := c.generation

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.SampleInterval)
	go func() {
		defer cancel()
		res := make(chan sampleResult, 1)
		go func() {
			info, err := c.source.Sample(ctx)
			res <- sampleResult{gen: gen, info: info, err: err}
		}()

		var r sampleResult
		select {
		case r = <-res:
		case <-ctx.Done():
			r = sampleResult{gen: gen, err: ctx.Err()}
		}
		select {
		case c.sampleResults <- r:
		case <-c.ctx.Done():
		}
	}()
}

func (c *Controller) handleSample(r sampleResult) {
	c.sampling = false
	// A clock-out since the request bumps the generation.
	if r.gen != c.generation || !c.machine.ClockedIn() {
		return
	}
	if r.err != nil {
		if msg := r.err.Error(); msg != c.lastErr {
			log.Printf("Warning: window sample failed: %v", r.err)
			c.lastErr = msg
		}
		return
	}
	c.lastErr = ""

	closed, opened := c.tracker.Observe(r.info, c.clock.Now())
	if closed != nil {
		c.archive(closed.ToEvent())
	}
	if opened {
		c.notify(event.Notification{Name: event.NotifyActivityChanged, Activity: c.tracker.Current()})
	}
}

// --- Transitions shared by the public API ---

func (c *Controller) clockIn() bool {
	now := c.clock.Now()
	if !c.machine.ClockIn(now) {
		return false
	}
	log.Println("Controller: clocked in")
	c.detector.Start(now)
	c.tracker.Start()
	c.notify(event.Notification{Name: event.NotifyActivityStatus, Active: event.BoolPtr(true)})
	c.flushTimeline()
	c.requestSample()
	return true
}

func (c *Controller) clockOut() (session.Ledger, bool) {
	now := c.clock.Now()
	ledger, ok := c.machine.ClockOut(now)
	if !ok {
		return ledger, false
	}
	log.Printf("Controller: clocked out (session %s, payable %s)",
		session.FormatSeconds(ledger.SessionTime), session.FormatSeconds(ledger.PayableTime))
	c.generation++
	c.detector.Stop()
	if closed := c.tracker.Stop(now); closed != nil {
		c.archive(closed.ToEvent())
	}
	c.notify(event.Notification{Name: event.NotifyActivityStatus, Active: event.BoolPtr(false)})
	c.flushTimeline()
	return ledger, true
}

func (c *Controller) resume() bool {
	now := c.clock.Now()
	if !c.machine.Resume(now) {
		return false
	}
	c.detector.MarkActive(now)
	c.notify(event.Notification{Name: event.NotifyResumeActivity})
	c.notify(event.Notification{Name: event.NotifyActivityStatus, Active: event.BoolPtr(true)})
	c.flushTimeline()
	return true
}

func (c *Controller) input(in event.InputEvent) {
	if !c.machine.ClockedIn() {
		return
	}
	now := c.clock.Now()
	if c.detector.Record(in, now) && c.machine.State() == session.Inactive {
		c.resume()
	}
}

// flushTimeline forwards entries appended since the last flush.
func (c *Controller) flushTimeline() {
	for _, e := range c.machine.TimelineSince(c.timelineSeen) {
		e := e
		c.notify(event.Notification{Name: event.NotifyTimelineAppended, Timeline: &e})
		c.archive(e.ToEvent())
	}
	c.timelineSeen = c.machine.TimelineLen()
}

func (c *Controller) notify(n event.Notification) {
	if c.updateChan == nil {
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = c.clock.Now()
	}
	select {
	case c.updateChan <- n:
	case <-c.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		log.Printf("Warning: Timeout sending %s notification from Controller", n.Name)
	}
}

func (c *Controller) archive(e event.Event) {
	if c.eventChan == nil {
		return
	}
	select {
	case c.eventChan <- e:
	case <-c.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		log.Println("Warning: Timeout sending archive event from Controller")
	}
}

func (c *Controller) status() Status {
	now := c.clock.Now()
	c.tick(now)
	c.flushTimeline()
	s := Status{
		Session:         c.machine.Snapshot(),
		UserActive:      c.detector.Active(),
		CurrentActivity: c.tracker.Current(),
		WindowFocused:   c.focused,
		Now:             now,

		InactivityThreshold: c.detector.Threshold(),
	}
	if c.detector.Enabled() {
		last := c.detector.LastActivity()
		s.LastInput = &last
	}
	return s
}
