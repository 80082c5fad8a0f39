package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worktrack/internal/event"
)

var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func assertInvariants(t *testing.T, l Ledger) {
	t.Helper()
	assert.Equal(t, l.SessionTime, l.WorkTime+l.NormalBreakTime+l.OfficeBreakTime+l.InactiveTime, "buckets must sum to session time")
	assert.Equal(t, l.PayableTime, l.WorkTime+l.OfficeBreakTime, "payable is work plus office break")
	for _, v := range []int64{l.WorkTime, l.NormalBreakTime, l.OfficeBreakTime, l.InactiveTime} {
		assert.GreaterOrEqual(t, v, int64(0))
	}
}

func lastEntry(m *Machine) event.TimelineEntry {
	tl := m.Timeline()
	return tl[len(tl)-1]
}

func TestWorkAccruesEverySecond(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	require.True(t, m.ClockIn(at(0)))

	for s := 1; s <= 65; s++ {
		m.Tick(at(s))
		assertInvariants(t, m.Ledger())
	}

	l := m.Ledger()
	assert.Equal(t, int64(65), l.WorkTime)
	assert.Equal(t, int64(65), l.SessionTime)
	assert.Equal(t, int64(65), l.PayableTime)
	assert.Equal(t, Working, m.State())
}

func TestTickJitterDoesNotDrift(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))

	now := t0
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			now = now.Add(1300 * time.Millisecond)
		} else {
			now = now.Add(700 * time.Millisecond)
		}
		m.Tick(now)
	}

	assert.Equal(t, int64(100), m.Ledger().SessionTime)
	assert.Equal(t, int64(100), m.Ledger().WorkTime)
}

func TestOfficeBreakAutoExpires(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	for s := 1; s <= 10; s++ {
		m.Tick(at(s))
	}
	require.True(t, m.StartBreak(BreakOffice, 30*time.Second, at(10)))
	assert.Equal(t, OfficeBreak, m.State())

	for s := 11; s <= 50; s++ {
		m.Tick(at(s))
		assertInvariants(t, m.Ledger())
	}

	l := m.Ledger()
	assert.Equal(t, int64(20), l.WorkTime)
	assert.Equal(t, int64(30), l.OfficeBreakTime)
	assert.Equal(t, int64(50), l.PayableTime)
	assert.Equal(t, Working, m.State())

	var ended *event.TimelineEntry
	for _, e := range m.Timeline() {
		if e.Type == event.TimelineBreakEnd {
			e := e
			ended = &e
		}
	}
	require.NotNil(t, ended)
	assert.Equal(t, at(40), ended.Timestamp)
	assert.Equal(t, 30*time.Second, ended.Duration)
	assert.Contains(t, ended.Description, "Completed full break duration: 0m 30s")
}

func TestBreakExpiryWithSingleLateTick(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakNormal, 30*time.Second, at(10))

	m.Tick(at(50))

	l := m.Ledger()
	assert.Equal(t, int64(20), l.WorkTime)
	assert.Equal(t, int64(30), l.NormalBreakTime)
	assert.Equal(t, int64(20), l.PayableTime)
	assertInvariants(t, l)
}

func TestEndBreakEarly(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakNormal, 15*time.Minute, at(60))

	require.True(t, m.EndBreak(at(360)))

	l := m.Ledger()
	assert.Equal(t, int64(60), l.WorkTime)
	assert.Equal(t, int64(300), l.NormalBreakTime)
	assert.Equal(t, Working, m.State())

	e := lastEntry(m)
	assert.Equal(t, event.TimelineBreakEnd, e.Type)
	assert.Equal(t, "normal", e.Tag)
	assert.Contains(t, e.Description, "Early")
	assert.Contains(t, e.Description, "5m 00s")
	assert.Contains(t, e.Description, "ended 10m 00s early")
}

func TestEndBreakAfterPlannedEndCountsAsCompleted(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakOffice, 10*time.Second, at(0))

	require.True(t, m.EndBreak(at(25)))

	l := m.Ledger()
	assert.Equal(t, int64(10), l.OfficeBreakTime)
	assert.Equal(t, int64(15), l.WorkTime)
	assert.Contains(t, m.Timeline()[2].Description, "Completed")
}

func TestBreakRequiresWorking(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	assert.False(t, m.StartBreak(BreakNormal, time.Minute, at(0)), "not clocked in")

	m.ClockIn(at(0))
	assert.False(t, m.StartBreak("lunch", time.Minute, at(1)))
	require.True(t, m.StartBreak(BreakNormal, time.Minute, at(1)))
	assert.False(t, m.StartBreak(BreakOffice, time.Minute, at(2)), "already on a break")
	assert.Equal(t, NormalBreak, m.State())

	assert.False(t, New(0, DefaultPolicy()).EndBreak(at(0)))
}

func TestIdleBackdating(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	for s := 1; s <= 20; s++ {
		m.Tick(at(s))
	}

	require.True(t, m.MarkInactive(at(20)))
	snap := m.Snapshot()
	require.NotNil(t, snap.InactiveSince)
	assert.Equal(t, at(15), *snap.InactiveSince)
	assert.Equal(t, int64(15), m.Ledger().WorkTime)
	assert.Equal(t, int64(5), m.Ledger().InactiveTime)
	assertInvariants(t, m.Ledger())

	for s := 21; s <= 30; s++ {
		m.Tick(at(s))
	}
	require.True(t, m.Resume(at(30)))

	l := m.Ledger()
	assert.Equal(t, int64(15), l.InactiveTime)
	assert.Equal(t, int64(15), l.WorkTime)
	assert.Equal(t, int64(15), l.PayableTime)
	assert.Equal(t, Working, m.State())

	e := lastEntry(m)
	assert.Equal(t, event.TimelineInactivityEnd, e.Type)
	assert.Equal(t, 15*time.Second, e.Duration)
}

func TestBackdatingStopsAtWorkingStretchStart(t *testing.T) {
	m := New(60*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakOffice, 30*time.Second, at(0))
	m.Tick(at(40))

	require.True(t, m.MarkInactive(at(40)))

	l := m.Ledger()
	assert.Equal(t, int64(30), l.OfficeBreakTime, "break time is never reclassified")
	assert.Equal(t, int64(0), l.WorkTime)
	assert.Equal(t, int64(10), l.InactiveTime)
	assert.Equal(t, at(30), *m.Snapshot().InactiveSince)
	assertInvariants(t, l)
}

func TestResumeIsIdempotent(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))

	assert.False(t, m.Resume(at(3)), "resume while working is a no-op")
	before := m.TimelineLen()

	m.MarkInactive(at(10))
	assert.True(t, m.Resume(at(12)))
	assert.False(t, m.Resume(at(13)))
	assert.False(t, m.Resume(at(14)))
	assert.Equal(t, before+2, m.TimelineLen())
}

func TestMarkInactiveOnlyFromWorking(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	assert.False(t, m.MarkInactive(at(0)))

	m.ClockIn(at(0))
	m.StartBreak(BreakNormal, time.Minute, at(1))
	assert.False(t, m.MarkInactive(at(10)))
	assert.Equal(t, NormalBreak, m.State())

	m.EndBreak(at(11))
	require.True(t, m.MarkInactive(at(20)))
	assert.False(t, m.MarkInactive(at(21)))
}

func TestBackwardClockIsClamped(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.Tick(at(10))

	m.Tick(at(4))
	assert.Equal(t, int64(10), m.Ledger().SessionTime)
	assertInvariants(t, m.Ledger())

	m.Tick(at(11))
	assert.Equal(t, int64(11), m.Ledger().WorkTime)
}

func TestClockOutMidBreak(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakOffice, time.Minute, at(10))

	final, ok := m.ClockOut(at(25))
	require.True(t, ok)

	assert.Equal(t, int64(10), final.WorkTime)
	assert.Equal(t, int64(15), final.OfficeBreakTime)
	assert.Equal(t, int64(25), final.PayableTime)
	assertInvariants(t, final)

	tl := m.Timeline()
	require.Len(t, tl, 4)
	assert.Equal(t, event.TimelineBreakEnd, tl[2].Type)
	assert.Equal(t, event.TimelineClockOut, tl[3].Type)
	assert.Contains(t, tl[3].Description, "0m 25s")

	assert.Equal(t, NotWorking, m.State())
	assert.Equal(t, Ledger{}, m.Ledger())
}

func TestClockOutMidOfficeBreakWithoutPartialPay(t *testing.T) {
	m := New(5*time.Second, Policy{PayPartialOfficeBreak: false})
	m.ClockIn(at(0))
	m.StartBreak(BreakOffice, time.Minute, at(10))

	final, _ := m.ClockOut(at(25))

	assert.Equal(t, int64(0), final.OfficeBreakTime)
	assert.Equal(t, int64(15), final.NormalBreakTime)
	assert.Equal(t, int64(10), final.PayableTime)
	assertInvariants(t, final)
}

func TestCompletedOfficeBreakStaysPaidWithoutPartialPay(t *testing.T) {
	m := New(5*time.Second, Policy{PayPartialOfficeBreak: false})
	m.ClockIn(at(0))
	m.StartBreak(BreakOffice, 10*time.Second, at(0))

	final, _ := m.ClockOut(at(30))

	assert.Equal(t, int64(10), final.OfficeBreakTime)
	assert.Equal(t, int64(30), final.PayableTime)
}

func TestClockOutWhileInactive(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.MarkInactive(at(20))

	final, ok := m.ClockOut(at(40))
	require.True(t, ok)

	assert.Equal(t, int64(15), final.WorkTime)
	assert.Equal(t, int64(25), final.InactiveTime)
	assertInvariants(t, final)

	tl := m.Timeline()
	assert.Equal(t, event.TimelineInactivityEnd, tl[len(tl)-2].Type)
	assert.Equal(t, 25*time.Second, tl[len(tl)-2].Duration)
	assert.Equal(t, event.TimelineClockOut, tl[len(tl)-1].Type)
}

func TestClockInAndOutAreIdempotent(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	_, ok := m.ClockOut(at(0))
	assert.False(t, ok)

	require.True(t, m.ClockIn(at(0)))
	m.Tick(at(5))
	assert.False(t, m.ClockIn(at(6)))
	assert.Equal(t, int64(5), m.Ledger().WorkTime, "second clock-in must not reset the ledger")
	assert.Equal(t, 1, m.TimelineLen())
}

func TestTimelineSurvivesClockOut(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.ClockOut(at(10))
	m.ClockIn(at(20))

	assert.Equal(t, 3, m.TimelineLen())
	assert.Equal(t, int64(0), m.Ledger().SessionTime)

	since := m.TimelineSince(2)
	require.Len(t, since, 1)
	assert.Equal(t, event.TimelineClockIn, since[0].Type)
	assert.Nil(t, m.TimelineSince(3))
}

func TestTickWhileNotWorkingIsNoop(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.Tick(at(100))
	assert.Equal(t, Ledger{}, m.Ledger())
	assert.Empty(t, m.Timeline())
}

func TestSnapshotDuringBreak(t *testing.T) {
	m := New(5*time.Second, DefaultPolicy())
	m.ClockIn(at(0))
	m.StartBreak(BreakNormal, 15*time.Minute, at(60))

	s := m.Snapshot()
	assert.Equal(t, NormalBreak, s.State)
	assert.Equal(t, BreakNormal, s.BreakKind)
	require.NotNil(t, s.BreakEndsAt)
	assert.Equal(t, at(60+15*60), *s.BreakEndsAt)
	assert.Equal(t, at(0), *s.SessionStart)
	assert.Nil(t, s.InactiveSince)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0m 00s", FormatSeconds(0))
	assert.Equal(t, "2m 05s", FormatSeconds(125))
	assert.Equal(t, "1h 02m 03s", FormatSeconds(3723))
	assert.Equal(t, "0m 00s", FormatSeconds(-4))
	assert.Equal(t, "15m 00s", FormatDuration(15*time.Minute))
}
