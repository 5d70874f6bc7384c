package worker

import (
	"context"

	"github.com/rs/zerolog"

	"collegeerp/internal/attendance"
	"collegeerp/internal/metrics"
	"collegeerp/internal/queue"
)

// Run drains q until ctx is cancelled or the queue closes. Accepted scans are
// logged and counted; unknown message types are skipped.
func Run(ctx context.Context, q queue.Queue, m *metrics.Metrics, log zerolog.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		handle(msg, m, log)
	}
	log.Info().Msg("worker stopped")
	return nil
}

func handle(msg queue.Message, m *metrics.Metrics, log zerolog.Logger) {
	if msg.Type != queue.TypeScan {
		log.Debug().Str("type", msg.Type).Msg("skipping message")
		m.Processed.WithLabelValues("skipped").Inc()
		return
	}

	var evt attendance.Event
	if err := msg.Decode(&evt); err != nil {
		log.Warn().Err(err).Msg("undecodable scan message")
		m.Processed.WithLabelValues("invalid").Inc()
		return
	}

	log.Info().
		Str("event_id", evt.ID).
		Str("class_id", evt.ClassID).
		Str("student_id", evt.StudentID).
		Str("scanned_by", evt.ScannedBy).
		Time("when", evt.When).
		Msg("attendance scan recorded")
	m.Processed.WithLabelValues(queue.TypeScan).Inc()
}
