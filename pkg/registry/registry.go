// Package registry implements the feature store coordinator. It owns the
// feature groups, drives ingestion (compute, validate, dual-write) and
// retrieval (online point reads, offline range scans), and tracks feature
// lifecycle status.
//
// # Dual-store consistency
//
// The offline store is authoritative: an ingest appends the record to the
// offline partition first and fails outright when that write fails, before
// the online store has seen anything. The online write is a best-effort
// cache refresh; its failure is logged, counted, and reported in the
// IngestResult, but the ingest still succeeds. Either store can later be
// read independently.
//
// The registry itself is append-only: groups are registered at startup and
// never removed. Registration takes the write lock; every read path takes
// the read lock, so ingestion and retrieval from concurrent request
// handlers is safe.
package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skylarkml/skylark/pkg/feature"
	"github.com/skylarkml/skylark/pkg/logger"
	"github.com/skylarkml/skylark/pkg/metrics"
	"github.com/skylarkml/skylark/pkg/skyerrors"
	"github.com/skylarkml/skylark/pkg/store"
	"github.com/skylarkml/skylark/pkg/store/offline"
	"github.com/skylarkml/skylark/pkg/store/online"
)

// Store is the feature store coordinator. Construct it with New and inject
// the store adapters; there is no ambient singleton.
type Store struct {
	name      string
	createdAt time.Time

	mu     sync.RWMutex
	groups map[string]*feature.Group
	order  []string

	online  online.Store
	offline offline.Store
	log     *zap.Logger
}

// New creates a coordinator over the given store adapters.
func New(name string, onlineStore online.Store, offlineStore offline.Store) *Store {
	return &Store{
		name:      name,
		createdAt: time.Now().UTC(),
		groups:    make(map[string]*feature.Group),
		online:    onlineStore,
		offline:   offlineStore,
		log:       logger.WithComponent("registry").With(zap.String("store", name)),
	}
}

// Name returns the store instance name.
func (s *Store) Name() string { return s.name }

// CreatedAt returns the coordinator creation time.
func (s *Store) CreatedAt() time.Time { return s.createdAt }

// RegisterFeatureGroup registers a group under its name. A duplicate name
// is a reported no-op, not an error: the registry is left unchanged and
// false is returned.
func (s *Store) RegisterFeatureGroup(g *feature.Group) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[g.Name]; exists {
		s.log.Warn("feature group already registered", zap.String("group", g.Name))
		return false
	}

	s.groups[g.Name] = g
	s.order = append(s.order, g.Name)
	s.log.Info("feature group registered",
		zap.String("group", g.Name),
		zap.String("entity", g.Entity),
		zap.Int("features", g.Len()),
	)
	return true
}

// Group resolves a registered group by name.
func (s *Store) Group(name string) (*feature.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[name]
	return g, ok
}

// Groups returns the registered groups in registration order.
func (s *Store) Groups() []*feature.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*feature.Group, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.groups[name])
	}
	return out
}

// IngestResult reports the outcome of a successful ingest. OnlineErr is
// non-nil when the offline append succeeded but the online cache refresh
// failed; the record is then durable offline and the online snapshot is
// stale until the next ingest for the same key.
type IngestResult struct {
	Record    *store.Record
	OnlineErr error
}

// Ingest computes the group's features from a raw record, stamps entity id,
// timestamp, and partition date, and writes the result to both stores.
//
// Nothing is written when computation fails: a validation or transformation
// error aborts the whole group and is returned unchanged. A failed offline
// append is a storage error and also leaves both stores untouched. Only an
// online write failure is non-fatal (see the package comment).
func (s *Store) Ingest(ctx context.Context, groupName, entityID string, raw map[string]interface{}, ts time.Time) (*IngestResult, error) {
	group, ok := s.Group(groupName)
	if !ok {
		metrics.IngestsTotal.WithLabelValues(groupName, "unknown_group").Inc()
		return nil, skyerrors.Newf(skyerrors.ErrorTypeNotFound, "feature group %q is not registered", groupName).
			WithDetail("group", groupName)
	}

	computeTimer := metrics.NewTimer(metrics.ComputeLatency.WithLabelValues(groupName))
	values, err := group.ComputeAll(raw)
	computeTimer.Stop()
	if err != nil {
		status := "transformation_error"
		if skyerrors.IsType(err, skyerrors.ErrorTypeValidation) {
			status = "validation_error"
		}
		metrics.IngestsTotal.WithLabelValues(groupName, status).Inc()
		s.log.Warn("feature computation failed",
			zap.String("group", groupName),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil, err
	}

	rec := store.NewRecord(groupName, entityID, values, ts)

	offlineTimer := metrics.NewTimer(metrics.StoreLatency.WithLabelValues("offline", "append"))
	err = s.offline.Append(ctx, rec)
	offlineTimer.Stop()
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(groupName, "storage_error").Inc()
		s.log.Error("offline append failed",
			zap.String("group", groupName),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil, err
	}

	result := &IngestResult{Record: rec}

	onlineTimer := metrics.NewTimer(metrics.StoreLatency.WithLabelValues("online", "write"))
	err = s.online.Write(ctx, rec.Key(), rec.EncodeFields())
	onlineTimer.Stop()
	if err != nil {
		// Offline is already durable; the online snapshot is just stale.
		metrics.OnlineWriteFailures.WithLabelValues(groupName).Inc()
		s.log.Warn("online write failed, record durable offline only",
			zap.String("group", groupName),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		result.OnlineErr = err
	}

	metrics.IngestsTotal.WithLabelValues(groupName, "success").Inc()
	return result, nil
}

// GetOnlineFeatures reads the current feature snapshot for one entity.
// An entity that was never ingested yields an empty map with a nil error;
// store failures come back on the error channel so callers can tell the
// two apart. An unregistered group is a not-found error.
func (s *Store) GetOnlineFeatures(ctx context.Context, groupName, entityID string) (map[string]string, error) {
	if _, ok := s.Group(groupName); !ok {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeNotFound, "feature group %q is not registered", groupName).
			WithDetail("group", groupName)
	}

	timer := metrics.NewTimer(metrics.StoreLatency.WithLabelValues("online", "read"))
	fields, err := s.online.ReadAll(ctx, groupName+":"+entityID)
	timer.Stop()
	if err != nil {
		metrics.OnlineReads.WithLabelValues(groupName, "error").Inc()
		return nil, err
	}

	if len(fields) == 0 {
		metrics.OnlineReads.WithLabelValues(groupName, "miss").Inc()
	} else {
		metrics.OnlineReads.WithLabelValues(groupName, "hit").Inc()
	}
	return fields, nil
}

// GetHistoricalFeatures scans the group's offline partitions over the
// inclusive [startDate, endDate] range (both "YYYY-MM-DD"). A group whose
// offline path has never been written yields an empty slice.
func (s *Store) GetHistoricalFeatures(ctx context.Context, groupName, startDate, endDate string) ([]*store.Record, error) {
	if _, ok := s.Group(groupName); !ok {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeNotFound, "feature group %q is not registered", groupName).
			WithDetail("group", groupName)
	}
	if _, err := time.Parse(store.PartitionDateLayout, startDate); err != nil {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeData, "invalid start date %q", startDate)
	}
	if _, err := time.Parse(store.PartitionDateLayout, endDate); err != nil {
		return nil, skyerrors.Newf(skyerrors.ErrorTypeData, "invalid end date %q", endDate)
	}

	timer := metrics.NewTimer(metrics.StoreLatency.WithLabelValues("offline", "scan"))
	records, err := s.offline.Scan(ctx, groupName, startDate, endDate)
	timer.Stop()
	return records, err
}

// ListFeatures returns a snapshot of every registered feature's metadata,
// groups in registration order, features in declaration order.
func (s *Store) ListFeatures() []feature.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []feature.Metadata
	for _, name := range s.order {
		for _, def := range s.groups[name].Features() {
			out = append(out, *def.Metadata)
		}
	}
	return out
}

// GetFeatureMetadata looks up one feature's metadata by name and entity.
func (s *Store) GetFeatureMetadata(name, entity string) (feature.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if md := s.findMetadata(name, entity); md != nil {
		return *md, true
	}
	return feature.Metadata{}, false
}

// DeprecateFeature transitions a feature to deprecated and bumps its
// update timestamp. A feature that does not exist is a reported no-op.
func (s *Store) DeprecateFeature(name, entity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := s.findMetadata(name, entity)
	if md == nil {
		s.log.Warn("deprecate requested for unknown feature",
			zap.String("feature", name), zap.String("entity", entity))
		return false
	}

	md.Deprecate()
	s.log.Info("feature deprecated", zap.String("feature", name), zap.String("entity", entity))
	return true
}

// ArchiveFeature transitions a deprecated feature to the terminal archived
// state. Features in any other state, and unknown features, are reported
// no-ops.
func (s *Store) ArchiveFeature(name, entity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := s.findMetadata(name, entity)
	if md == nil {
		s.log.Warn("archive requested for unknown feature",
			zap.String("feature", name), zap.String("entity", entity))
		return false
	}

	if !md.Archive() {
		s.log.Warn("archive requires a deprecated feature",
			zap.String("feature", name),
			zap.String("entity", entity),
			zap.String("status", string(md.Status)),
		)
		return false
	}

	s.log.Info("feature archived", zap.String("feature", name), zap.String("entity", entity))
	return true
}

// findMetadata locates a feature's metadata by name and entity. Caller
// holds the registry lock.
func (s *Store) findMetadata(name, entity string) *feature.Metadata {
	for _, groupName := range s.order {
		g := s.groups[groupName]
		if g.Entity != entity {
			continue
		}
		if def, ok := g.Feature(name); ok {
			return def.Metadata
		}
	}
	return nil
}

// Health pings the online store. The offline store is local files and has
// no liveness to probe.
func (s *Store) Health(ctx context.Context) error {
	return s.online.Ping(ctx)
}

// Close releases both store adapters.
func (s *Store) Close() error {
	offErr := s.offline.Close()
	onErr := s.online.Close()
	if offErr != nil {
		return offErr
	}
	return onErr
}
