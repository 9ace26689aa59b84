package tracker

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	return New(Options{ComboTimeout: 30 * time.Second, Clock: clock.Now}), clock
}

func snapshot(t *testing.T, tr *Tracker, class event.Class) Snapshot {
	t.Helper()
	s, ok := tr.Snapshot(class)
	require.True(t, ok)
	return s
}

func step(id string, idx, total int) event.Event {
	return event.Event{Kind: event.ComboStep, Class: event.Iop, ComboID: id, ComboName: id, Step: idx, TotalSteps: total}
}

func TestApply_Clamping(t *testing.T) {
	tests := []struct {
		name   string
		class  event.Class
		gauge  string
		events []event.Event
		want   int
	}{
		{"set within bounds", event.Iop, event.Concentration,
			[]event.Event{event.NewGaugeSet(event.Iop, event.Concentration, 40, time.Time{})}, 40},
		{"set above max", event.Iop, event.Concentration,
			[]event.Event{event.NewGaugeSet(event.Iop, event.Concentration, 120, time.Time{})}, 100},
		{"set below min", event.Cra, event.Affutage,
			[]event.Event{event.NewGaugeSet(event.Cra, event.Affutage, -5, time.Time{})}, 0},
		{"delta above max", event.Iop, event.Courroux,
			[]event.Event{
				event.NewGaugeSet(event.Iop, event.Courroux, 4, time.Time{}),
				event.NewGaugeDelta(event.Iop, event.Courroux, 3, time.Time{}),
			}, 5},
		{"balise floor", event.Cra, event.BaliseAffutee,
			[]event.Event{
				event.NewGaugeSet(event.Cra, event.BaliseAffutee, 1, time.Time{}),
				event.NewGaugeDelta(event.Cra, event.BaliseAffutee, -1, time.Time{}),
				event.NewGaugeDelta(event.Cra, event.BaliseAffutee, -1, time.Time{}),
			}, 0},
		{"precision above threshold kept", event.Cra, event.Precision,
			[]event.Event{event.NewGaugeSet(event.Cra, event.Precision, 230, time.Time{})}, 230},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker()
			tr.Apply(tt.events)
			assert.Equal(t, tt.want, snapshot(t, tr, tt.class).Gauge(tt.gauge))
		})
	}
}

func TestApply_GuardedDelta(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Apply([]event.Event{
		event.NewGaugeSet(event.Cra, event.Affutage, 80, time.Time{}),
		event.NewGuardedDelta(event.Cra, event.Affutage, -100, 100, time.Time{}),
	})
	assert.Equal(t, 80, snapshot(t, tr, event.Cra).Gauge(event.Affutage), "guard not met")

	tr.Apply([]event.Event{
		event.NewGaugeSet(event.Cra, event.Affutage, 150, time.Time{}),
		event.NewGuardedDelta(event.Cra, event.Affutage, -100, 100, time.Time{}),
	})
	assert.Equal(t, 50, snapshot(t, tr, event.Cra).Gauge(event.Affutage))
}

func TestApply_UnknownIgnored(t *testing.T) {
	tr, _ := newTestTracker()
	out := tr.Apply([]event.Event{
		event.NewGaugeSet("osamodas", "Invocation", 3, time.Time{}),
		event.NewGaugeSet(event.Iop, "Invocation", 3, time.Time{}),
		event.NewGaugeDelta(event.Iop, "Invocation", 3, time.Time{}),
	})
	assert.Empty(t, out)
	_, ok := snapshot(t, tr, event.Iop).Gauges["Invocation"]
	assert.False(t, ok)
	_, ok = tr.Snapshot("osamodas")
	assert.False(t, ok)
}

func TestApply_Flags(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Apply([]event.Event{
		event.NewFlagDetected(event.Iop, event.Courroux, 10*time.Second, time.Time{}),
		event.NewFlagDetected(event.Cra, event.PointeAffutee, 0, time.Time{}),
	})

	s := snapshot(t, tr, event.Iop)
	assert.True(t, s.Flag(event.Courroux))
	assert.Equal(t, 10*time.Second, s.Flags[event.Courroux].Remaining)
	assert.True(t, snapshot(t, tr, event.Cra).Flag(event.PointeAffutee))

	clock.Advance(10 * time.Second)
	assert.False(t, snapshot(t, tr, event.Iop).Flag(event.Courroux), "expired flag reported inactive")
	assert.True(t, snapshot(t, tr, event.Cra).Flag(event.PointeAffutee), "flag without expiry stays")

	tr.Apply([]event.Event{event.NewFlagCleared(event.Cra, event.PointeAffutee, time.Time{})})
	assert.False(t, snapshot(t, tr, event.Cra).Flag(event.PointeAffutee))
}

func TestApply_ComboProgress(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Apply([]event.Event{step("combo_4", 0, 3)})
	c := snapshot(t, tr, event.Iop).Combo
	assert.Equal(t, ComboInProgress, c.Status)
	assert.Equal(t, 1, c.Step)
	assert.Equal(t, 3, c.TotalSteps)
	assert.Equal(t, 30*time.Second, c.Remaining)

	tr.Apply([]event.Event{step("combo_4", 1, 3)})
	assert.Equal(t, 2, snapshot(t, tr, event.Iop).Combo.Step)

	// A step that skips ahead is a mismatch.
	tr.Apply([]event.Event{step("combo_4", 3, 3)})
	assert.Equal(t, ComboIdle, snapshot(t, tr, event.Iop).Combo.Status)
}

func TestApply_ComboReset(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Apply([]event.Event{
		step("combo_1", 0, 3),
		{Kind: event.ComboReset, Class: event.Iop, ComboID: "combo_1", Reason: combo.ReasonMismatch},
	})
	assert.Equal(t, ComboIdle, snapshot(t, tr, event.Iop).Combo.Status)
}

func TestApply_ComboTimeout(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Apply([]event.Event{step("combo_1", 0, 3)})

	clock.Advance(31 * time.Second)
	assert.Equal(t, ComboIdle, snapshot(t, tr, event.Iop).Combo.Status, "snapshot hides lapsed progress")

	out := tr.Apply(nil)
	require.Len(t, out, 1)
	assert.Equal(t, event.ComboReset, out[0].Kind)
	assert.Equal(t, combo.ReasonTimeout, out[0].Reason)
	assert.Equal(t, "combo_1", out[0].ComboID)

	// A late step 1 does not resume the lapsed combo.
	tr.Apply([]event.Event{step("combo_1", 1, 3)})
	assert.Equal(t, ComboIdle, snapshot(t, tr, event.Iop).Combo.Status)
}

func TestApply_ComboTimeoutRefreshedByStep(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Apply([]event.Event{step("combo_1", 0, 3)})

	clock.Advance(20 * time.Second)
	tr.Apply([]event.Event{step("combo_1", 1, 3)})
	clock.Advance(20 * time.Second)

	assert.Empty(t, tr.Apply(nil))
	assert.Equal(t, 2, snapshot(t, tr, event.Iop).Combo.Step)
}

func TestExpire(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Apply([]event.Event{step("combo_1", 0, 3)})

	assert.Empty(t, tr.Expire())
	clock.Advance(31 * time.Second)
	out := tr.Expire()
	require.Len(t, out, 1)
	assert.Equal(t, combo.ReasonTimeout, out[0].Reason)
	assert.Empty(t, tr.Apply(nil), "already reported")
}

func TestApply_ComboCompleteNeedsTrackedSteps(t *testing.T) {
	complete := event.Event{Kind: event.ComboComplete, Class: event.Iop, ComboID: "combo_4", TotalSteps: 3}

	tests := []struct {
		name   string
		events []event.Event
	}{
		{"from idle", []event.Event{complete}},
		{"after a skipped step", []event.Event{step("combo_4", 1, 3), step("combo_4", 2, 3), complete}},
		{"before the last step", []event.Event{step("combo_4", 0, 3), step("combo_4", 1, 3), complete}},
		{"other combo", []event.Event{step("combo_1", 0, 3), step("combo_1", 1, 3), step("combo_1", 2, 3), complete}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker()
			assert.Empty(t, tr.Apply(tt.events))
			assert.NotEqual(t, ComboCompleted, snapshot(t, tr, event.Iop).Combo.Status)
		})
	}
}

func TestApply_ComboCompleteFlash(t *testing.T) {
	tr, clock := newTestTracker()

	complete := event.Event{Kind: event.ComboComplete, Class: event.Iop, ComboID: "combo_4", ComboName: "Dommages +", TotalSteps: 3}
	out := tr.Apply([]event.Event{
		step("combo_4", 0, 3),
		step("combo_4", 1, 3),
		step("combo_4", 2, 3),
		complete,
		step("combo_1", 0, 3),
	})
	require.Len(t, out, 1)
	assert.Equal(t, event.ComboComplete, out[0].Kind)

	c := snapshot(t, tr, event.Iop).Combo
	assert.Equal(t, ComboCompleted, c.Status)
	assert.Equal(t, "Dommages +", c.ComboName)
	assert.Equal(t, 3, c.Step)

	clock.Advance(DefaultFlashDuration)
	c = snapshot(t, tr, event.Iop).Combo
	assert.Equal(t, ComboInProgress, c.Status, "chained combo shows after the flash")
	assert.Equal(t, "combo_1", c.ComboID)
}

func TestApply_SpellCastAndActiveClass(t *testing.T) {
	tr, _ := newTestTracker()
	assert.Equal(t, event.Class(""), tr.ActiveClass())

	cost := event.Cost{PA: 2}
	tr.Apply([]event.Event{{Kind: event.SpellCast, Class: event.Iop, Spell: "Épée de Feu", Cost: &cost}})
	cost.PA = 9

	s := snapshot(t, tr, event.Iop)
	require.NotNil(t, s.LastSpell)
	assert.Equal(t, "Épée de Feu", s.LastSpell.Name)
	assert.Equal(t, 2, s.LastSpell.Cost.PA, "tracker keeps its own copy")
	assert.Equal(t, event.Iop, tr.ActiveClass())

	tr.Apply([]event.Event{event.NewGaugeSet(event.Cra, event.Affutage, 10, time.Time{})})
	assert.Equal(t, event.Cra, tr.ActiveClass())
}

func TestApply_CombatEndResetsAll(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Apply([]event.Event{
		event.NewGaugeSet(event.Iop, event.Concentration, 40, time.Time{}),
		event.NewGaugeSet(event.Cra, event.Affutage, 120, time.Time{}),
		event.NewFlagDetected(event.Cra, event.PointeAffutee, 0, time.Time{}),
		step("combo_1", 0, 3),
	})

	tr.Apply([]event.Event{event.NewCombatEnd(time.Time{})})

	iop := snapshot(t, tr, event.Iop)
	cra := snapshot(t, tr, event.Cra)
	assert.Equal(t, 0, iop.Gauge(event.Concentration))
	assert.Equal(t, ComboIdle, iop.Combo.Status)
	assert.Equal(t, 0, cra.Gauge(event.Affutage))
	assert.False(t, cra.Flag(event.PointeAffutee))
}

func TestReset(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Apply([]event.Event{
		event.NewGaugeSet(event.Iop, event.Concentration, 40, time.Time{}),
		event.NewGaugeSet(event.Cra, event.Affutage, 120, time.Time{}),
	})

	assert.True(t, tr.Reset(event.Iop))
	assert.False(t, tr.Reset("osamodas"))

	assert.Equal(t, 0, snapshot(t, tr, event.Iop).Gauge(event.Concentration))
	assert.Equal(t, 120, snapshot(t, tr, event.Cra).Gauge(event.Affutage), "other class untouched")
}

func TestSnapshot_IsCopy(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Apply([]event.Event{event.NewGaugeSet(event.Iop, event.Concentration, 40, time.Time{})})

	s := snapshot(t, tr, event.Iop)
	s.Gauges[event.Concentration] = GaugeSnapshot{Value: 99}

	assert.Equal(t, 40, snapshot(t, tr, event.Iop).Gauge(event.Concentration))
}

func TestSnapshot_JSON(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Apply([]event.Event{event.NewGaugeSet(event.Cra, event.Precision, 230, time.Time{})})

	data, err := json.Marshal(snapshot(t, tr, event.Cra))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	gauges := decoded["gauges"].(map[string]any)
	prec := gauges[event.Precision].(map[string]any)
	assert.EqualValues(t, 230, prec["value"])
	assert.EqualValues(t, 200, prec["threshold"])
	assert.Equal(t, true, prec["over_threshold"])
	assert.Equal(t, "idle", decoded["combo"].(map[string]any)["status"])
}

func TestSnapshots(t *testing.T) {
	tr, _ := newTestTracker()
	all := tr.Snapshots()
	assert.Len(t, all, 2)
	assert.Contains(t, all, event.Iop)
	assert.Contains(t, all, event.Cra)
	assert.Equal(t, []event.Class{event.Iop, event.Cra}, tr.Classes())
}

func TestTracker_ConcurrentSnapshot(t *testing.T) {
	tr, _ := newTestTracker()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			tr.Apply([]event.Event{event.NewGaugeDelta(event.Iop, event.Concentration, 1, time.Time{})})
		}
	}()
	for i := 0; i < 200; i++ {
		s := snapshot(t, tr, event.Iop)
		v := s.Gauge(event.Concentration)
		assert.True(t, v >= 0 && v <= 100)
	}
	wg.Wait()
	assert.Equal(t, 100, snapshot(t, tr, event.Iop).Gauge(event.Concentration))
}
