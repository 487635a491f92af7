package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCapture(t *testing.T) {
	m := New()

	m.RecordCapture("text", "stored", time.Millisecond)
	m.RecordCapture("text", "stored", time.Millisecond)
	m.RecordCapture("image", "bumped", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("text", "stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapturesTotal.WithLabelValues("image", "bumped")))
}

func TestCommandsAndGauges(t *testing.T) {
	m := New()

	m.RecordCommand("pin", nil)
	m.RecordCommand("pin", errors.New("boom"))
	m.RecordEvictions(3)
	m.RecordEvictions(0)
	m.SetHistorySize(7)
	m.SubscriberAdded()
	m.SubscriberAdded()
	m.SubscriberRemoved()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pin", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pin", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EvictionsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.HistoryEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedSubscribers))
}

func TestRegisterDropped(t *testing.T) {
	m := New()
	var n uint64 = 4
	m.RegisterDropped(func() uint64 { return n })

	count, err := testutil.GatherAndCount(m.Registry, "clipflow_paused_drops_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterEchoes(t *testing.T) {
	m := New()
	m.RegisterEchoes(func() uint64 { return 2 })

	count, err := testutil.GatherAndCount(m.Registry, "clipflow_self_writes_skipped_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordCapture("text", "stored", time.Second)
	m.RecordEvictions(1)
	m.SetHistorySize(1)
	m.RecordCommand("x", nil)
	m.SubscriberAdded()
	m.SubscriberRemoved()
	m.RegisterDropped(func() uint64 { return 0 })
	m.RegisterEchoes(func() uint64 { return 0 })
}
