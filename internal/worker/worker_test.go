package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collegeerp/internal/attendance"
	"collegeerp/internal/metrics"
	"collegeerp/internal/queue"
)

func TestRunCountsMessages(t *testing.T) {
	q := queue.NewInMemory(8)
	m := metrics.New(prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, q, m, zerolog.Nop()) }()

	scan, err := queue.NewMessage(queue.TypeScan, attendance.Event{ID: "e1", ClassID: "class1", StudentID: "student1"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, scan))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other", Body: []byte(`{}`)}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeScan, Body: []byte(`"not an event"`)}))

	assert.Eventually(t, func() bool {
		return counter(t, m.Processed.WithLabelValues(queue.TypeScan)) == 1 &&
			counter(t, m.Processed.WithLabelValues("skipped")) == 1 &&
			counter(t, m.Processed.WithLabelValues("invalid")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
