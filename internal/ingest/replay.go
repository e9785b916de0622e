package ingest

import (
	"context"
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
)

// ReplaySource re-emits stored transfer records as token events in
// chain order. Feeding it through a Runner rebuilds the balance replica
// and the timeseries rollups from the transfers table alone.
type ReplaySource struct {
	store    storage.TransferStore
	contract domain.AccountID
}

// NewReplaySource creates a source replaying one contract's history.
func NewReplaySource(store storage.TransferStore, contract domain.AccountID) *ReplaySource {
	return &ReplaySource{store: store, contract: contract}
}

// Subscribe loads all transfers and streams them as events. The channel
// closes after the last record, which stops the consuming Runner.
func (s *ReplaySource) Subscribe(ctx context.Context) (<-chan *domain.TokenEvent, error) {
	records, err := s.store.GetByContract(ctx, string(s.contract))
	if err != nil {
		return nil, fmt.Errorf("load transfers: %w", err)
	}

	eventsCh := make(chan *domain.TokenEvent, 100)
	go func() {
		defer close(eventsCh)
		for _, record := range records {
			ev, err := eventFromTransferRecord(record)
			if err != nil {
				// Corrupt row; replay continues without it.
				continue
			}
			select {
			case eventsCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return eventsCh, nil
}

// eventFromTransferRecord is the inverse of transferRecordFromEvent.
func eventFromTransferRecord(record *domain.TransferRecord) (*domain.TokenEvent, error) {
	amount, err := domain.ParseBalance(record.Amount)
	if err != nil {
		return nil, err
	}

	ev := &domain.TokenEvent{
		Kind:        record.Kind,
		Contract:    domain.AccountID(record.Contract),
		Amount:      amount,
		Memo:        record.Memo,
		BlockHeight: record.BlockHeight,
		ReceiptID:   record.ReceiptID,
		EventIndex:  record.EventIndex,
		Timestamp:   record.Timestamp,
	}
	if record.FromAccount != nil {
		ev.From = domain.AccountID(*record.FromAccount)
	}
	if record.ToAccount != nil {
		ev.To = domain.AccountID(*record.ToAccount)
	}
	return ev, nil
}
