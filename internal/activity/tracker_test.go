package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/categorizer"
	"worktrack/internal/clock"
	"worktrack/internal/event"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func newTestTracker() (*Tracker, *clock.Fake) {
	tr := NewTracker(categorizer.New())
	n := 0
	tr.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	tr.Start()
	return tr, clock.NewFake(t0)
}

func sample(app string) *event.FocusInfo {
	return &event.FocusInfo{AppName: app, Title: app}
}

func assertAtMostOneOpen(t *testing.T, tr *Tracker) {
	t.Helper()
	for _, h := range tr.History() {
		assert.True(t, h.Closed(), "history must only hold closed entries")
	}
	if cur := tr.Current(); cur != nil {
		assert.False(t, cur.Closed())
	}
}

func TestSlackSlackChrome(t *testing.T) {
	tr, c := newTestTracker()

	for _, app := range []string{"Slack", "Slack", "Chrome"} {
		tr.Observe(sample(app), c.Now())
		assertAtMostOneOpen(t, tr)
		c.Advance(time.Second)
	}

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, "Slack", history[0].Name)
	assert.Equal(t, 2*time.Second, history[0].Duration)
	assert.Equal(t, t0.Add(2*time.Second), *history[0].EndTime)

	cur := tr.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "Chrome", cur.Name)
	assert.Equal(t, "Browser", cur.Category)
	assert.Equal(t, event.KindBrowser, cur.Type)
}

func TestCoalescesIdenticalSamples(t *testing.T) {
	tr, c := newTestTracker()

	for i := 0; i < 100; i++ {
		closed, opened := tr.Observe(sample("Code"), c.Now())
		assert.Nil(t, closed)
		assert.Equal(t, i == 0, opened)
		c.Advance(time.Second)
	}

	assert.Empty(t, tr.History())
	require.NotNil(t, tr.Current())
	assert.Equal(t, "id-1", tr.Current().ID)
}

func TestTitleOrURLChangeOpensNewEntry(t *testing.T) {
	tr, c := newTestTracker()

	tr.Observe(&event.FocusInfo{AppName: "Firefox", Title: "Docs"}, c.Now())
	c.Advance(time.Second)
	closed, opened := tr.Observe(&event.FocusInfo{AppName: "Firefox", Title: "Docs", URL: "https://pkg.go.dev"}, c.Now())

	require.NotNil(t, closed)
	assert.True(t, opened)
	assert.Equal(t, "Docs", closed.Title)
	assert.Equal(t, "Development", tr.Current().Category)
}

func TestTitleDefaultsToName(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(&event.FocusInfo{AppName: "Terminal"}, c.Now())
	assert.Equal(t, "Terminal", tr.Current().Title)
}

func TestUnusableSamplesAreSkipped(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(sample("Slack"), c.Now())

	c.Advance(time.Second)
	closed, opened := tr.Observe(nil, c.Now())
	assert.Nil(t, closed)
	assert.False(t, opened)
	tr.Observe(&event.FocusInfo{AppName: "Desktop"}, c.Now())

	assert.Empty(t, tr.History())
	assert.Equal(t, "Slack", tr.Current().Name)
}

func TestObserveIgnoredWhileNotTracking(t *testing.T) {
	tr := NewTracker(nil)
	closed, opened := tr.Observe(sample("Slack"), t0)
	assert.Nil(t, closed)
	assert.False(t, opened)
	assert.Nil(t, tr.Current())
}

func TestStopClosesOpenEntry(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(sample("Slack"), c.Now())
	c.Advance(5 * time.Second)

	closed := tr.Stop(c.Now())

	require.NotNil(t, closed)
	assert.Equal(t, 5*time.Second, closed.Duration)
	assert.Nil(t, tr.Current())
	assert.Len(t, tr.History(), 1)
	assert.False(t, tr.Tracking())
	assert.Nil(t, tr.Stop(c.Now()), "second stop has nothing to close")
}

func TestCloseClampsBackwardClock(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(sample("Slack"), c.Now())
	c.Advance(-3 * time.Second)

	closed, _ := tr.Observe(sample("Zoom"), c.Now())

	require.NotNil(t, closed)
	assert.Equal(t, time.Duration(0), closed.Duration)
}

func TestHistoryIsACopy(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(sample("Slack"), c.Now())
	c.Advance(time.Second)
	tr.Observe(sample("Zoom"), c.Now())

	h := tr.History()
	h[0].Name = "mutated"
	assert.Equal(t, "Slack", tr.History()[0].Name)

	cur := tr.Current()
	cur.Name = "mutated"
	assert.Equal(t, "Zoom", tr.Current().Name)
}

func TestStatsAndClear(t *testing.T) {
	tr, c := newTestTracker()
	tr.Observe(sample("Code"), c.Now())
	c.Advance(10 * time.Second)
	tr.Observe(sample("Spotify"), c.Now())
	c.Advance(5 * time.Second)
	tr.Stop(c.Now())

	s := tr.Stats(nil)
	assert.Equal(t, 15*time.Second, s.TotalTime)
	assert.Equal(t, 10*time.Second, s.ProductiveTime)
	assert.Equal(t, 5*time.Second, s.UnproductiveTime)

	tr.Clear()
	assert.Empty(t, tr.History())
	assert.Zero(t, tr.Stats(nil).TotalTime)
}

func TestUpdateCategoryAffectsNewEntries(t *testing.T) {
	tr, c := newTestTracker()
	tr.UpdateCategory("Calculator", "Finance", 80)

	tr.Observe(sample("Calculator"), c.Now())
	assert.Equal(t, "Finance", tr.Current().Category)
	assert.Equal(t, 80, tr.Current().ProductivityScore)
}
