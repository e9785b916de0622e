package ingest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/idhash"
	"github.com/brainstems/itlx-nep141-token/internal/observability"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
	"github.com/brainstems/itlx-nep141-token/internal/token"
)

// EventSource produces token events, live or replayed.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *domain.TokenEvent, error)
}

// Runner orchestrates continuous event ingestion for one token contract.
// Events are buffered per block and processed once the block falls behind
// the highest seen height by the lag window, which gives deterministic
// ordering even when the feed delivers receipts out of order.
type Runner struct {
	source          EventSource
	replica         *token.Replica
	transferStore   storage.TransferStore
	holderStore     storage.HolderStore
	timeseriesStore storage.TransferTimeseriesStore
	blockLagWindow  int64
	flushInterval   time.Duration
	bucketInterval  time.Duration
	logger          zerolog.Logger

	// Block-based buffer for deterministic ordering.
	buffer       map[int64][]*domain.TokenEvent
	highestBlock int64

	// Pending timeseries rollups keyed by interval start (ms).
	pending map[int64]*domain.TransferTimeseriesPoint
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source          EventSource
	Replica         *token.Replica
	TransferStore   storage.TransferStore
	HolderStore     storage.HolderStore
	TimeseriesStore storage.TransferTimeseriesStore
	BlockLagWindow  int64         // Default: 5 blocks
	FlushInterval   time.Duration // Default: 5s
	BucketInterval  time.Duration // Default: 1m rollup buckets
	Logger          zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	blockLagWindow := opts.BlockLagWindow
	if blockLagWindow == 0 {
		blockLagWindow = 5 // ~5 seconds of NEAR blocks
	}

	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}

	bucketInterval := opts.BucketInterval
	if bucketInterval == 0 {
		bucketInterval = time.Minute
	}

	return &Runner{
		source:          opts.Source,
		replica:         opts.Replica,
		transferStore:   opts.TransferStore,
		holderStore:     opts.HolderStore,
		timeseriesStore: opts.TimeseriesStore,
		blockLagWindow:  blockLagWindow,
		flushInterval:   flushInterval,
		bucketInterval:  bucketInterval,
		logger:          opts.Logger.With().Str("component", "ingest-runner").Logger(),
		buffer:          make(map[int64][]*domain.TokenEvent),
		pending:         make(map[int64]*domain.TransferTimeseriesPoint),
	}
}

// Run starts continuous ingestion. It blocks until the context is
// cancelled or the event source closes.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().
		Int64("block_lag_window", r.blockLagWindow).
		Dur("flush_interval", r.flushInterval).
		Msg("starting ingestion runner")

	eventsCh, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	flushTicker := time.NewTicker(r.flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drain the buffer before shutdown; ordering no longer matters.
			r.flushAllBlocks(ctx)
			r.FlushAll(ctx)
			r.logger.Info().Msg("ingestion runner stopping")
			return ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				r.flushAllBlocks(ctx)
				r.FlushAll(ctx)
				return ErrFeedClosed
			}
			r.bufferEvent(ctx, event)

		case <-flushTicker.C:
			// Process finalized blocks even if no new heights arrive,
			// and push accumulated rollups.
			r.processFinalizedBlocks(ctx)
			r.flushTimeseries(ctx)
		}
	}
}

// bufferEvent adds an event to the block buffer and processes blocks
// that have fallen behind the lag window.
func (r *Runner) bufferEvent(ctx context.Context, event *domain.TokenEvent) {
	height := event.BlockHeight
	r.buffer[height] = append(r.buffer[height], event)

	if height > r.highestBlock {
		r.highestBlock = height
		observability.UpdateHighestBlock(height)
		r.processFinalizedBlocks(ctx)
	} else if height <= r.highestBlock-r.blockLagWindow {
		// Late event for an already-finalized block: process immediately.
		r.processBlock(ctx, height)
	}
	observability.UpdateBufferSize(len(r.buffer))
}

// processFinalizedBlocks processes all buffered blocks behind the lag window.
func (r *Runner) processFinalizedBlocks(ctx context.Context) {
	finalized := r.highestBlock - r.blockLagWindow
	if finalized < 0 {
		return
	}

	var heights []int64
	for h := range r.buffer {
		if h <= finalized {
			heights = append(heights, h)
		}
	}
	sortInt64s(heights)

	for _, h := range heights {
		r.processBlock(ctx, h)
	}
	observability.UpdateBufferSize(len(r.buffer))
}

// processBlock processes all events for a single block in deterministic order.
func (r *Runner) processBlock(ctx context.Context, height int64) {
	events, ok := r.buffer[height]
	if !ok || len(events) == 0 {
		delete(r.buffer, height)
		return
	}

	SortEvents(events)
	for _, event := range events {
		r.handleEvent(ctx, event)
	}
	delete(r.buffer, height)

	observability.UpdateReplica(r.replica.TotalSupply().Float64(), len(r.replica.Holders()))
}

// flushAllBlocks processes every remaining buffered block on shutdown.
func (r *Runner) flushAllBlocks(ctx context.Context) {
	var heights []int64
	for h := range r.buffer {
		heights = append(heights, h)
	}
	sortInt64s(heights)
	for _, h := range heights {
		r.processBlock(ctx, h)
	}
}

// sortInt64s sorts a slice of int64 in ascending order.
func sortInt64s(s []int64) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

// handleEvent stores one event and folds it into the replica.
func (r *Runner) handleEvent(ctx context.Context, event *domain.TokenEvent) {
	start := time.Now()
	defer func() {
		observability.DefaultMetrics.EventProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	observability.RecordEventProcessed(string(event.Kind))

	if r.transferStore != nil {
		record := transferRecordFromEvent(event)
		if err := r.transferStore.Insert(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// Redelivered receipt, already applied. Skip the replica
				// too or balances would double-count.
				return
			}
			r.logger.Error().Err(err).Str("transfer_id", record.TransferID).Msg("storing transfer")
			observability.RecordEventError("store")
			return
		}
		observability.RecordEventStored(time.Now().Unix())
	}

	if err := r.replica.Apply(event); err != nil {
		r.logger.Error().Err(err).
			Str("receipt", event.ReceiptID).
			Int("event_index", event.EventIndex).
			Msg("replica rejected event")
		observability.RecordDivergence()
		return
	}

	r.updateHolders(ctx, event)
	r.accumulate(event)
}

// updateHolders writes the post-event balances of the affected accounts.
func (r *Runner) updateHolders(ctx context.Context, event *domain.TokenEvent) {
	if r.holderStore == nil {
		return
	}

	now := time.Now().UnixMilli()
	for _, account := range []domain.AccountID{event.From, event.To} {
		if account == "" {
			continue
		}
		h := &domain.HolderBalance{
			Contract:    string(event.Contract),
			AccountID:   string(account),
			Balance:     r.replica.BalanceOf(account).String(),
			BlockHeight: event.BlockHeight,
			UpdatedAt:   now,
		}
		if err := r.holderStore.Upsert(ctx, h); err != nil {
			r.logger.Error().Err(err).Str("account", string(account)).Msg("updating holder balance")
			observability.RecordEventError("holder")
		}
	}
}

// accumulate folds an event into the pending timeseries rollup bucket.
func (r *Runner) accumulate(event *domain.TokenEvent) {
	if r.timeseriesStore == nil {
		return
	}

	bucketMs := r.bucketInterval.Milliseconds()
	bucket := event.Timestamp - event.Timestamp%bucketMs

	point, ok := r.pending[bucket]
	if !ok {
		point = &domain.TransferTimeseriesPoint{
			Contract:    string(event.Contract),
			TimestampMs: bucket,
		}
		r.pending[bucket] = point
	}

	switch event.Kind {
	case domain.EventMint:
		point.MintCount++
	case domain.EventBurn:
		point.BurnCount++
	case domain.EventTransfer:
		point.TransferCount++
		point.Volume += event.Amount.Float64()
	}
	if event.BlockHeight > point.BlockHeight {
		point.BlockHeight = event.BlockHeight
	}
}

// flushTimeseries pushes accumulated rollups to the timeseries store.
// Only buckets older than the newest one are flushed so that a bucket
// still receiving events is not written twice.
func (r *Runner) flushTimeseries(ctx context.Context) {
	if r.timeseriesStore == nil || len(r.pending) == 0 {
		return
	}

	var newest int64
	for bucket := range r.pending {
		if bucket > newest {
			newest = bucket
		}
	}

	var points []*domain.TransferTimeseriesPoint
	for bucket, point := range r.pending {
		if bucket < newest {
			points = append(points, point)
			delete(r.pending, bucket)
		}
	}
	if len(points) == 0 {
		return
	}

	if err := r.timeseriesStore.InsertBulk(ctx, points); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Error().Err(err).Int("points", len(points)).Msg("flushing timeseries")
			observability.RecordEventError("timeseries")
		}
		return
	}
	r.logger.Debug().Int("points", len(points)).Msg("flushed timeseries rollups")
}

// FlushAll drains every pending rollup regardless of bucket age.
// Used on shutdown and by replay, where no further events will arrive.
func (r *Runner) FlushAll(ctx context.Context) {
	if r.timeseriesStore == nil || len(r.pending) == 0 {
		return
	}

	var points []*domain.TransferTimeseriesPoint
	for bucket, point := range r.pending {
		points = append(points, point)
		delete(r.pending, bucket)
	}
	if err := r.timeseriesStore.InsertBulk(ctx, points); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Error().Err(err).Int("points", len(points)).Msg("flushing timeseries")
	}
}

// transferRecordFromEvent converts a token event into its persisted form.
func transferRecordFromEvent(event *domain.TokenEvent) *domain.TransferRecord {
	record := &domain.TransferRecord{
		TransferID:  idhash.ComputeTransferID(string(event.Contract), event.ReceiptID, event.EventIndex, event.BlockHeight),
		Contract:    string(event.Contract),
		Kind:        event.Kind,
		Amount:      event.Amount.String(),
		Memo:        event.Memo,
		BlockHeight: event.BlockHeight,
		ReceiptID:   event.ReceiptID,
		EventIndex:  event.EventIndex,
		Timestamp:   event.Timestamp,
		CreatedAt:   time.Now().UnixMilli(),
	}
	if event.From != "" {
		from := string(event.From)
		record.FromAccount = &from
	}
	if event.To != "" {
		to := string(event.To)
		record.ToAccount = &to
	}
	return record
}
