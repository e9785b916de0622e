package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/observability"
)

// OutcomeSubscriber is the feed surface the source needs. *WSClient
// satisfies it; tests use an in-memory fake.
type OutcomeSubscriber interface {
	SubscribeOutcomes(ctx context.Context, accountID string) (<-chan Outcome, error)
}

// WSEventSource turns a live outcome feed into a stream of token events.
type WSEventSource struct {
	feed     OutcomeSubscriber
	parser   *EventParser
	contract domain.AccountID
	logger   zerolog.Logger
}

// NewWSEventSource creates an event source watching one contract.
func NewWSEventSource(feed OutcomeSubscriber, contract domain.AccountID, logger zerolog.Logger) *WSEventSource {
	return &WSEventSource{
		feed:     feed,
		parser:   NewEventParser(contract),
		contract: contract,
		logger:   logger.With().Str("component", "ws-source").Logger(),
	}
}

// Subscribe returns a channel of token events parsed from the live feed.
// The channel is closed when the context is cancelled or the feed closes.
func (s *WSEventSource) Subscribe(ctx context.Context) (<-chan *domain.TokenEvent, error) {
	outcomes, err := s.feed.SubscribeOutcomes(ctx, string(s.contract))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("contract", string(s.contract)).Msg("subscribed to outcome feed")

	eventsCh := make(chan *domain.TokenEvent, 100)

	go func() {
		defer close(eventsCh)

		for {
			select {
			case <-ctx.Done():
				return
			case outcome, ok := <-outcomes:
				if !ok {
					s.logger.Warn().Msg("outcome feed closed")
					return
				}
				s.processOutcome(ctx, eventsCh, &outcome)
			}
		}
	}()

	return eventsCh, nil
}

// processOutcome parses one receipt outcome and forwards its events.
func (s *WSEventSource) processOutcome(ctx context.Context, eventsCh chan<- *domain.TokenEvent, outcome *Outcome) {
	events, dropped := s.parser.ParseOutcome(outcome)
	if dropped > 0 {
		s.logger.Warn().
			Str("receipt", outcome.ReceiptID).
			Int("dropped", dropped).
			Msg("unparseable EVENT_JSON entries")
		for i := 0; i < dropped; i++ {
			observability.RecordParseError()
		}
	}
	if len(events) == 0 {
		return
	}

	s.logger.Debug().
		Str("receipt", outcome.ReceiptID).
		Int64("block", outcome.BlockHeight).
		Int("events", len(events)).
		Msg("parsed token events")

	for _, ev := range events {
		select {
		case eventsCh <- ev:
		case <-ctx.Done():
			return
		}
	}
}
