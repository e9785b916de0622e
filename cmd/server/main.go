// Package main runs the token indexer service: a WebSocket outcome feed
// subscription, the event ingestion runner with its balance replica,
// periodic on-chain metadata snapshots, and the metrics/status HTTP
// endpoints.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
	"github.com/brainstems/itlx-nep141-token/internal/ingest"
	"github.com/brainstems/itlx-nep141-token/internal/nearrpc"
	"github.com/brainstems/itlx-nep141-token/internal/observability"
	"github.com/brainstems/itlx-nep141-token/internal/storage"
	chstore "github.com/brainstems/itlx-nep141-token/internal/storage/clickhouse"
	"github.com/brainstems/itlx-nep141-token/internal/storage/memory"
	"github.com/brainstems/itlx-nep141-token/internal/storage/migrations"
	pgstore "github.com/brainstems/itlx-nep141-token/internal/storage/postgres"
	"github.com/brainstems/itlx-nep141-token/internal/token"
)

// Server holds all components of the indexer service.
type Server struct {
	rpcEndpoint      string
	wsEndpoint       string
	contract         domain.AccountID
	snapshotInterval time.Duration
	blockLagWindow   int64

	stores  *allStores
	replica *token.Replica
	rpc     *nearrpc.Client
	logger  zerolog.Logger

	mu           sync.Mutex
	started      time.Time
	lastSnapshot time.Time
	snapshots    int
}

// allStores holds all storage implementations.
type allStores struct {
	transferStore   storage.TransferStore
	holderStore     storage.HolderStore
	snapshotStore   storage.MetadataSnapshotStore
	timeseriesStore storage.TransferTimeseriesStore
}

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", envOr("NEAR_RPC_ENDPOINT", nearrpc.TestnetEndpoint), "NEAR RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("NEAR_WS_ENDPOINT"), "receipt outcome feed WebSocket endpoint")
	contract := flag.String("contract", os.Getenv("TOKEN_CONTRACT"), "token contract account id to index")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	blockLag := flag.Int64("block-lag", 5, "blocks to buffer before processing, for ordering")
	snapshotInterval := flag.Duration("snapshot-interval", 1*time.Hour, "on-chain metadata snapshot interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "indexer").Logger()

	if *wsEndpoint == "" {
		logger.Fatal().Msg("--ws-endpoint is required")
	}
	contractID := domain.AccountID(*contract)
	if err := contractID.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("--contract is required and must be a valid account id")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create stores")
	}
	defer cleanup()

	server := &Server{
		rpcEndpoint:      *rpcEndpoint,
		wsEndpoint:       *wsEndpoint,
		contract:         contractID,
		snapshotInterval: *snapshotInterval,
		blockLagWindow:   *blockLag,
		stores:           stores,
		replica:          token.NewReplica(contractID),
		rpc:              nearrpc.NewClient(*rpcEndpoint),
		logger:           logger,
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Second signal or timeout forces exit
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*metricsAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("shutdown complete")
}

// createStores creates all required stores, running migrations for the
// database-backed mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			transferStore:   memory.NewTransferStore(),
			holderStore:     memory.NewHolderStore(),
			snapshotStore:   memory.NewMetadataSnapshotStore(),
			timeseriesStore: memory.NewTransferTimeseriesStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		transferStore:   pgstore.NewTransferStore(pool),
		holderStore:     pgstore.NewHolderStore(pool),
		snapshotStore:   pgstore.NewMetadataSnapshotStore(pool),
		timeseriesStore: chstore.NewTransferTimeseriesStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// Run starts ingestion and the snapshot scheduler.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 2)

	go func() {
		err := s.runIngestion(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("ingestion: %w", err)
		}
	}()

	go func() {
		err := s.runSnapshotScheduler(ctx)
		if err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("snapshot scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runIngestion runs continuous event ingestion from the outcome feed.
func (s *Server) runIngestion(ctx context.Context) error {
	wsConfig := ingest.DefaultWSConfig()
	wsConfig.Logger = &s.logger

	ws, err := ingest.NewWSClient(ctx, s.wsEndpoint, &wsConfig)
	if err != nil {
		return fmt.Errorf("create feed client: %w", err)
	}
	defer ws.Close()

	source := ingest.NewWSEventSource(ws, s.contract, s.logger)

	runner := ingest.NewRunner(ingest.RunnerOptions{
		Source:          source,
		Replica:         s.replica,
		TransferStore:   s.stores.transferStore,
		HolderStore:     s.stores.holderStore,
		TimeseriesStore: s.stores.timeseriesStore,
		BlockLagWindow:  s.blockLagWindow,
		Logger:          s.logger,
	})

	s.logger.Info().Str("contract", string(s.contract)).Msg("ingestion started")
	return runner.Run(ctx)
}

// runSnapshotScheduler periodically records the on-chain metadata.
func (s *Server) runSnapshotScheduler(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.snapshotInterval).Msg("starting metadata snapshot scheduler")

	// Snapshot immediately on start
	s.takeSnapshot(ctx)

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.takeSnapshot(ctx)
		}
	}
}

// takeSnapshot queries ft_metadata and stores the observation.
func (s *Server) takeSnapshot(ctx context.Context) {
	start := time.Now()
	res, err := s.rpc.CallFunction(ctx, string(s.contract), nearrpc.MethodFTMetadata, nil, nearrpc.FinalityFinal)
	observability.RecordRPCLatency(nearrpc.MethodFTMetadata, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn().Err(err).Msg("metadata snapshot query failed")
		return
	}

	var md domain.TokenMetadata
	if err := json.Unmarshal(res.Result, &md); err != nil {
		s.logger.Warn().Err(err).Msg("decoding metadata snapshot")
		return
	}

	now := time.Now().UnixMilli()
	snap := &domain.MetadataSnapshot{
		Contract:    string(s.contract),
		BlockHeight: res.BlockHeight,
		Spec:        md.Spec,
		Name:        md.Name,
		Symbol:      md.Symbol,
		Decimals:    md.Decimals,
		FetchedAt:   now,
		CreatedAt:   now,
	}
	if md.Reference != nil {
		ref := *md.Reference
		snap.Reference = &ref
	}
	if len(md.ReferenceHash) > 0 {
		hash := base64.StdEncoding.EncodeToString(md.ReferenceHash)
		snap.ReferenceHash = &hash
	}

	if err := s.stores.snapshotStore.Insert(ctx, snap); err != nil && err != storage.ErrDuplicateKey {
		s.logger.Warn().Err(err).Msg("storing metadata snapshot")
		return
	}

	s.mu.Lock()
	s.lastSnapshot = time.Now()
	s.snapshots++
	s.mu.Unlock()

	s.logger.Info().Str("name", md.Name).Str("symbol", md.Symbol).Msg("metadata snapshot stored")
}

// startHTTPServer starts the HTTP server for health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("HTTP server error")
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Contract      string    `json:"contract"`
	Uptime        string    `json:"uptime"`
	EventsApplied int64     `json:"events_applied"`
	TotalSupply   string    `json:"total_supply"`
	Holders       int       `json:"holders"`
	LastSnapshot  time.Time `json:"last_snapshot,omitempty"`
	Snapshots     int       `json:"snapshots"`
}

// handleStatus returns the replica state as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.started
	lastSnapshot := s.lastSnapshot
	snapshots := s.snapshots
	s.mu.Unlock()

	resp := StatusResponse{
		Status:        "running",
		Contract:      string(s.contract),
		Uptime:        time.Since(started).String(),
		EventsApplied: s.replica.Applied(),
		TotalSupply:   s.replica.TotalSupply().String(),
		Holders:       len(s.replica.Holders()),
		LastSnapshot:  lastSnapshot,
		Snapshots:     snapshots,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// envOr returns the env value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
