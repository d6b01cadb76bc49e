// Package eventbus fans committed ledger events out to observers.
package eventbus

import (
	"context"

	"github.com/rs/zerolog"

	"fundraiser/internal/domain"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "events").Logger()}
}

func (s *LogSink) Publish(_ context.Context, ev domain.Event) {
	evt := s.logger.Info().
		Str("event_id", ev.ID.String()).
		Str("fundraiser_id", ev.FundraiserID.String()).
		Int64("seq", ev.Seq).
		Str("kind", string(ev.Kind)).
		Str("amount", ev.Amount.String()).
		Uint64("timestamp", ev.Timestamp)
	if !ev.Donor.IsZero() {
		evt = evt.Str("donor", ev.Donor.String())
	}
	if !ev.Beneficiary.IsZero() {
		evt = evt.Str("beneficiary", ev.Beneficiary.String())
	}
	evt.Msg("ledger event")
}

// Multi delivers to each sink in order. Nil sinks are skipped.
type Multi []domain.EventSink

func (m Multi) Publish(ctx context.Context, ev domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}
