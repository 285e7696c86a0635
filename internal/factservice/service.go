// Package factservice coordinates the metadata crawler, the local facts
// directory, and the snapshot store: one Refresh call produces the next
// fact table and persists it when it differs from the previous one.
package factservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arnstad/hugin/internal/checksum"
	"github.com/arnstad/hugin/internal/factsdir"
	"github.com/arnstad/hugin/internal/metadata"
	"github.com/arnstad/hugin/internal/sse"
	"github.com/arnstad/hugin/internal/store"
)

// Endpoints holds the metadata service URIs one crawl touches.
type Endpoints struct {
	Base      string // root of the recursive tree
	UserData  string // raw instance user-data
	PublicKey string // public half of the injected SSH key
}

// Service owns the refresh pipeline and the read side over the latest
// snapshot.
type Service struct {
	client    *metadata.Client
	norm      *metadata.Normalizer
	endpoints Endpoints
	regions   []string
	local     *factsdir.Dir // nil when facts.d is not configured
	db        store.SnapshotStore
	broker    *sse.Broker // nil when SSE is not wired (MCP mode)
	keep      int         // snapshots retained after each refresh
	logger    *slog.Logger

	mu sync.Mutex // serializes refreshes (ticker, watcher, POST /refresh)
}

// New creates a Service. local and broker may be nil.
func New(client *metadata.Client, norm *metadata.Normalizer, endpoints Endpoints, regions []string,
	local *factsdir.Dir, db store.SnapshotStore, broker *sse.Broker, keep int, logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if keep <= 0 {
		keep = 20
	}
	return &Service{
		client:    client,
		norm:      norm,
		endpoints: endpoints,
		regions:   regions,
		local:     local,
		db:        db,
		broker:    broker,
		keep:      keep,
		logger:    logger,
	}
}

// RefreshResult summarizes one refresh cycle.
type RefreshResult struct {
	SnapshotID int64 `json:"snapshot_id"`
	FactCount  int   `json:"fact_count"`
	Changed    bool  `json:"changed"`
}

// Refresh crawls the metadata tree, builds the flat fact table, and persists
// it as a new snapshot unless it is byte-identical to the latest one.
// Crawl-level failures never surface as errors — an unreachable endpoint
// simply produces a smaller (possibly empty) table; only store failures are
// returned.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.gather(ctx)
	sum := checksum.Table(facts)

	latest, err := s.db.LatestSnapshot()
	if err == nil && latest.Checksum == sum {
		s.logger.Debug("refresh: table unchanged", slog.Int64("snapshot_id", latest.ID))
		res := &RefreshResult{SnapshotID: latest.ID, FactCount: latest.FactCount, Changed: false}
		s.publish(res)
		return res, nil
	}

	id, err := s.db.SaveSnapshot(facts, sum, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.db.Prune(s.keep); err != nil {
		s.logger.Warn("refresh: prune failed", slog.String("error", err.Error()))
	}

	s.logger.Info("refresh: snapshot saved",
		slog.Int64("snapshot_id", id),
		slog.Int("fact_count", len(facts)))

	res := &RefreshResult{SnapshotID: id, FactCount: len(facts), Changed: true}
	s.publish(res)
	return res, nil
}

// gather produces the complete flat fact table for one cycle: crawl,
// normalize, supplementary leaves, region inference, then local facts.
func (s *Service) gather(ctx context.Context) map[string]string {
	crawler := metadata.NewCrawler(s.client, s.endpoints.Base, s.logger)
	raw := crawler.Crawl(ctx)
	facts := s.norm.Normalize(raw, s.endpoints.Base)

	// The two leaves outside the recursive tree; absent on fetch failure.
	if userData, ok := s.client.Get(ctx, s.endpoints.UserData); ok {
		facts[s.norm.FactName("user-data")] = userData
	}
	if publicKey, ok := s.client.Get(ctx, s.endpoints.PublicKey); ok {
		facts[s.norm.FactName("public-key")] = publicKey
	}

	metadata.AddRegion(facts, s.norm.Prefix, s.regions)

	if s.local != nil {
		localFacts, err := s.local.Load()
		if err != nil {
			s.logger.Warn("refresh: local facts load failed", slog.String("error", err.Error()))
		}
		for name, value := range localFacts {
			key := s.norm.FactName(name)
			// Metadata-derived facts win over local ones.
			if _, exists := facts[key]; !exists {
				facts[key] = value
			}
		}
	}

	return facts
}

func (s *Service) publish(res *RefreshResult) {
	if s.broker == nil {
		return
	}
	s.broker.PublishRefresh(sse.RefreshData{
		SnapshotID: res.SnapshotID,
		FactCount:  res.FactCount,
		Changed:    res.Changed,
	})
}

// Table returns the fact table of the latest snapshot; an empty map when
// nothing has been gathered yet.
func (s *Service) Table(_ context.Context) (map[string]string, error) {
	return s.db.LatestFacts()
}

// Get returns one fact value from the latest snapshot.
func (s *Service) Get(_ context.Context, name string) (string, error) {
	return s.db.GetFact(name)
}

// Snapshots returns refresh history metadata, newest first.
func (s *Service) Snapshots(_ context.Context, limit int) ([]store.Snapshot, error) {
	return s.db.ListSnapshots(limit)
}
