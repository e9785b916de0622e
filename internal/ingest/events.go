// Package ingest consumes NEP-297 execution log feeds and maintains
// the off-chain view of the token: transfer records, holder balances
// and the in-memory balance replica.
package ingest

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// eventJSONPrefix marks a NEP-297 structured event in execution logs.
const eventJSONPrefix = "EVENT_JSON:"

// Outcome is one receipt execution outcome delivered by a feed.
type Outcome struct {
	ReceiptID   string
	ExecutorID  string // contract account that produced the logs
	Logs        []string
	BlockHeight int64
	TimestampMs int64
}

// EventParser extracts NEP-141 token events from execution logs.
// It is stateless and safe for concurrent use.
type EventParser struct {
	contract domain.AccountID
}

// NewEventParser creates a parser that accepts events emitted by the
// given contract and ignores everything else.
func NewEventParser(contract domain.AccountID) *EventParser {
	return &EventParser{contract: contract}
}

// ParseOutcome extracts token events from one receipt's logs.
// Lines without the EVENT_JSON prefix are skipped silently; lines with
// the prefix that fail to parse are counted in dropped. Event indices
// are assigned per data entry in log order, so a single ft_transfer log
// carrying three data entries yields indices 0, 1, 2.
func (p *EventParser) ParseOutcome(o *Outcome) (events []*domain.TokenEvent, dropped int) {
	if o.ExecutorID != "" && o.ExecutorID != string(p.contract) {
		return nil, 0
	}

	eventIndex := 0
	for _, line := range o.Logs {
		if !strings.HasPrefix(line, eventJSONPrefix) {
			continue
		}
		payload := line[len(eventJSONPrefix):]
		if !gjson.Valid(payload) {
			dropped++
			continue
		}

		root := gjson.Parse(payload)
		if root.Get("standard").String() != domain.EventStandard ||
			root.Get("version").String() != domain.EventVersion {
			// Some other standard's event on the same contract, not ours.
			continue
		}

		kind := domain.EventKind(root.Get("event").String())
		data := root.Get("data")
		if !data.IsArray() {
			dropped++
			continue
		}

		for _, entry := range data.Array() {
			ev, err := p.parseEntry(kind, entry, o)
			if err != nil {
				dropped++
				continue
			}
			ev.EventIndex = eventIndex
			eventIndex++
			events = append(events, ev)
		}
	}
	return events, dropped
}

// parseEntry converts one data entry into a TokenEvent.
func (p *EventParser) parseEntry(kind domain.EventKind, entry gjson.Result, o *Outcome) (*domain.TokenEvent, error) {
	ev := &domain.TokenEvent{
		Kind:        kind,
		Contract:    p.contract,
		BlockHeight: o.BlockHeight,
		ReceiptID:   o.ReceiptID,
		Timestamp:   o.TimestampMs,
	}

	amount, err := domain.ParseBalance(entry.Get("amount").String())
	if err != nil {
		return nil, err
	}
	ev.Amount = amount

	if memo := entry.Get("memo"); memo.Exists() && memo.Type == gjson.String {
		m := memo.String()
		ev.Memo = &m
	}

	switch kind {
	case domain.EventMint:
		ev.To = domain.AccountID(entry.Get("owner_id").String())
		if err := ev.To.Validate(); err != nil {
			return nil, err
		}
	case domain.EventBurn:
		ev.From = domain.AccountID(entry.Get("owner_id").String())
		if err := ev.From.Validate(); err != nil {
			return nil, err
		}
	case domain.EventTransfer:
		ev.From = domain.AccountID(entry.Get("old_owner_id").String())
		ev.To = domain.AccountID(entry.Get("new_owner_id").String())
		if err := ev.From.Validate(); err != nil {
			return nil, err
		}
		if err := ev.To.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, errUnknownEvent
	}

	return ev, nil
}

// SortEvents orders events by (receipt_id, event_index) for deterministic
// processing within a block.
func SortEvents(events []*domain.TokenEvent) {
	sort.Slice(events, func(i, j int) bool {
		return eventLess(events[i], events[j])
	})
}

func eventLess(a, b *domain.TokenEvent) bool {
	if a.ReceiptID != b.ReceiptID {
		return a.ReceiptID < b.ReceiptID
	}
	return a.EventIndex < b.EventIndex
}
