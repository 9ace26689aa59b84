package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.LinesRead(3)
	r.LinesRead(0)
	r.Duplicates(1)
	r.EventsApplied([]event.Event{
		event.NewGaugeSet(event.Iop, event.Concentration, 12, testTime),
		event.NewGaugeSet(event.Iop, event.Courroux, 1, testTime),
		{Kind: event.ComboComplete, Class: event.Iop, ComboID: "combo_4"},
		event.NewCombatEnd(testTime),
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(r.linesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.duplicates))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("gauge_set", "iop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("combat_end", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.combosComplete.WithLabelValues("combo_4")))

	r.LogAvailable(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.logAvailable))
	r.LogAvailable(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.logAvailable))
}

func TestRecorder_CustomRegistryAndNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithRegistry(reg), WithNamespace("overlay"))
	assert.Same(t, reg, r.Registry())

	r.LinesRead(1)
	n, err := testutil.GatherAndCount(reg, "overlay_lines_read_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.LinesRead(5)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wakfulog_lines_read_total 5"))
}
