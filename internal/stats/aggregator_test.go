package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doridoridoriand/fastping/internal/event"
	"github.com/doridoridoriand/fastping/internal/ping"
)

func success(ms float64) ping.Reading { return ping.Reading{Kind: ping.Success, Latency: ms} }

var (
	timeout      = ping.Reading{Kind: ping.Timeout}
	unrecognized = ping.Reading{Kind: ping.Unrecognized}
)

func kinds(events []event.Event) []event.Kind {
	out := make([]event.Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestObserveSuccessEmitsLatencyImmediately(t *testing.T) {
	agg := NewAggregator("8.8.8.8")
	events := agg.Observe(success(12.5))

	require.Len(t, events, 1)
	assert.Equal(t, event.KindLatency, events[0].Kind)
	assert.Equal(t, "8.8.8.8", events[0].Target)
	assert.Equal(t, 12.5, events[0].Latency)
	assert.False(t, events[0].Timeout)
	assert.Equal(t, Snapshot{IntervalTotal: 1, IntervalReceived: 1, LatencySum: 12.5, LatencyCount: 1}, agg.Snapshot())
}

func TestObserveTimeoutCountsOnlyTotal(t *testing.T) {
	agg := NewAggregator("a")
	events := agg.Observe(timeout)

	require.Len(t, events, 1)
	assert.True(t, events[0].Timeout)
	assert.Equal(t, Snapshot{IntervalTotal: 1}, agg.Snapshot())
}

func TestObserveUnrecognizedIsIgnored(t *testing.T) {
	agg := NewAggregator("a")
	agg.Observe(success(3))
	before := agg.Snapshot()

	assert.Empty(t, agg.Observe(unrecognized))
	assert.Equal(t, before, agg.Snapshot())
}

func TestPacketLossWindowWithFourTimeouts(t *testing.T) {
	agg := NewAggregator("a")
	var last []event.Event
	for i := 0; i < 40; i++ {
		if i%10 == 0 {
			last = agg.Observe(timeout)
		} else {
			last = agg.Observe(success(10))
		}
		if i < 39 {
			for _, e := range last {
				assert.NotEqual(t, event.KindPacketLoss, e.Kind, "loss emitted early at reading %d", i)
			}
		}
	}

	require.Contains(t, kinds(last), event.KindPacketLoss)
	for _, e := range last {
		if e.Kind == event.KindPacketLoss {
			assert.Equal(t, 10, e.LossPercent)
			assert.Equal(t, "loss:10%", e.Display())
		}
	}
	snap := agg.Snapshot()
	assert.Zero(t, snap.IntervalTotal)
	assert.Zero(t, snap.IntervalReceived)
}

func TestPacketLossIgnoresUnrecognizedLines(t *testing.T) {
	agg := NewAggregator("a")
	for i := 0; i < 39; i++ {
		agg.Observe(timeout)
		agg.Observe(unrecognized)
	}
	events := agg.Observe(timeout)
	require.Equal(t, []event.Kind{event.KindLatency, event.KindPacketLoss}, kinds(events))
	assert.Equal(t, 100, events[1].LossPercent)
}

func TestPacketLossRoundsHalfToEven(t *testing.T) {
	agg := NewAggregator("a")
	var events []event.Event
	events = agg.Observe(timeout)
	for i := 0; i < 39; i++ {
		events = agg.Observe(success(1))
	}
	// 1/40 = 2.5%
	require.Contains(t, kinds(events), event.KindPacketLoss)
	assert.Equal(t, 2, events[len(events)-1].LossPercent)
}

func TestAverageLatencyWindow(t *testing.T) {
	agg := NewAggregator("a")
	var events []event.Event
	for i := 1; i <= 20; i++ {
		events = agg.Observe(success(float64(i)))
		if i < 20 {
			assert.NotContains(t, kinds(events), event.KindAverageLatency)
		}
	}

	require.Equal(t, []event.Kind{event.KindLatency, event.KindAverageLatency}, kinds(events))
	assert.Equal(t, 10.5, events[1].AverageLatency)
	snap := agg.Snapshot()
	assert.Zero(t, snap.LatencyCount)
	assert.Zero(t, snap.LatencySum)
	assert.Equal(t, 20, snap.IntervalTotal)
}

func TestAverageLatencyRoundsToOneDecimal(t *testing.T) {
	agg := NewAggregator("a")
	var events []event.Event
	for i := 0; i < 19; i++ {
		agg.Observe(success(10))
	}
	events = agg.Observe(success(10.7))
	// (190 + 10.7) / 20 = 10.035
	assert.Equal(t, 10.0, events[len(events)-1].AverageLatency)
}

func TestWindowsCompleteOnSameReading(t *testing.T) {
	agg := NewAggregator("a")
	var events []event.Event
	for i := 0; i < 20; i++ {
		agg.Observe(timeout)
	}
	for i := 0; i < 20; i++ {
		events = agg.Observe(success(5))
	}
	assert.Equal(t, []event.Kind{event.KindLatency, event.KindPacketLoss, event.KindAverageLatency}, kinds(events))
	assert.Equal(t, 50, events[1].LossPercent)
	assert.Equal(t, 5.0, events[2].AverageLatency)
}

func TestCustomWindows(t *testing.T) {
	agg := NewAggregatorWithWindows("a", 4, 2)
	agg.Observe(success(1))
	events := agg.Observe(success(2))
	assert.Equal(t, []event.Kind{event.KindLatency, event.KindAverageLatency}, kinds(events))
	assert.Equal(t, 1.5, events[1].AverageLatency)

	agg.Observe(timeout)
	events = agg.Observe(timeout)
	assert.Equal(t, []event.Kind{event.KindLatency, event.KindPacketLoss}, kinds(events))
	assert.Equal(t, 50, events[1].LossPercent)

	defaults := NewAggregatorWithWindows("a", 0, -1)
	assert.Equal(t, DefaultLossWindow, defaults.lossWindow)
	assert.Equal(t, DefaultLatencyWindow, defaults.latencyWindow)
}
