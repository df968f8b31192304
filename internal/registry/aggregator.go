package registry

import (
	"context"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/store"
)

var log = logger.Component("registry")

// refreshSchedule runs the aggregator's catalog refresh every 15 minutes,
// mirroring the teacher's 15-minute GitHub-rate-limit-driven cache TTL but
// as an explicit cron expression rather than a TTL check on every call.
const refreshSchedule = "@every 15m"

// Aggregator owns the configured set of marketplace sources, refreshes
// their catalogs on a schedule, and serves merged search queries.
type Aggregator struct {
	store *store.Store
	cron  *cron.Cron
}

// New creates an Aggregator. Call Start to begin the periodic refresh.
func New(s *store.Store) *Aggregator {
	return &Aggregator{
		store: s,
		cron:  cron.New(),
	}
}

// Start schedules periodic refreshes and runs one immediately so the
// catalog is warm before the API surface starts serving.
func (a *Aggregator) Start(ctx context.Context) error {
	if _, err := a.cron.AddFunc(refreshSchedule, func() {
		a.RefreshAll(context.Background())
	}); err != nil {
		return err
	}
	a.cron.Start()
	a.RefreshAll(ctx)
	return nil
}

// Stop halts the scheduler, waiting for any in-flight refresh to finish.
func (a *Aggregator) Stop() {
	<-a.cron.Stop().Done()
}

// RefreshAll fetches every enabled source and replaces its stored catalog
// entries. A source's failure is recorded on its own row and does not
// stop the other sources from refreshing.
func (a *Aggregator) RefreshAll(ctx context.Context) {
	sources, err := a.store.ListSources(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sources for refresh")
		return
	}

	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		a.refreshOne(ctx, src)
	}
}

// RefreshSource fetches a single configured source by id, used by the
// per-source refresh API endpoint. Returns apperrors.NotFound if sourceID
// does not match a configured source.
func (a *Aggregator) RefreshSource(ctx context.Context, sourceID string) error {
	sources, err := a.store.ListSources(ctx)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if src.SourceID == sourceID {
			a.refreshOne(ctx, src)
			return nil
		}
	}
	return apperrors.NotFound("source")
}

func (a *Aggregator) refreshOne(ctx context.Context, src models.SourceRegistration) {
	entries, err := fetchSource(ctx, src)
	now := time.Now()
	src.LastFetchedAt = &now

	if err != nil {
		src.LastError = err.Error()
		log.Warn().Err(err).Str("sourceId", src.SourceID).Msg("catalog refresh failed")
		if uerr := a.store.UpsertSource(ctx, src); uerr != nil {
			log.Error().Err(uerr).Str("sourceId", src.SourceID).Msg("failed to record source fetch error")
		}
		return
	}

	src.LastError = ""
	if err := a.store.UpsertSource(ctx, src); err != nil {
		log.Error().Err(err).Str("sourceId", src.SourceID).Msg("failed to record source fetch success")
	}
	if err := a.store.ReplaceCatalogEntries(ctx, src.SourceID, entries); err != nil {
		log.Error().Err(err).Str("sourceId", src.SourceID).Msg("failed to store catalog entries")
	}
}

// List returns the merged, deduped, sorted catalog matching filter,
// considering only entries from enabled sources.
func (a *Aggregator) List(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogEntry, error) {
	sources, err := a.store.ListSources(ctx)
	if err != nil {
		return nil, err
	}
	priorities := make(map[string]int, len(sources))
	enabled := make(map[string]bool, len(sources))
	for _, s := range sources {
		priorities[s.SourceID] = s.Priority
		enabled[s.SourceID] = s.Enabled
	}

	entries, err := a.store.ListCatalog(ctx, filter)
	if err != nil {
		return nil, err
	}

	active := make([]models.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if enabled[e.SourceID] {
			active = append(active, e)
		}
	}

	merged := mergeEntries(active, priorities)
	sortEntries(merged)
	return merged, nil
}

// CategoryCounts proxies to the store's aggregated counts.
func (a *Aggregator) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	return a.store.CategoryCounts(ctx)
}

// mergeEntries implements the §4.8 dedup rule: for duplicate manifest
// ids, the entry from the source with the smallest priority wins.
func mergeEntries(entries []models.CatalogEntry, priority map[string]int) []models.CatalogEntry {
	winners := make(map[string]models.CatalogEntry, len(entries))
	for _, e := range entries {
		id := e.Manifest.ID
		current, ok := winners[id]
		if !ok {
			winners[id] = e
			continue
		}
		if priority[e.SourceID] < priority[current.SourceID] {
			winners[id] = e
		}
	}

	out := make([]models.CatalogEntry, 0, len(winners))
	for _, e := range winners {
		out = append(out, e)
	}
	return out
}

// sortEntries orders featured entries first, ties broken by descending
// downloads, per §4.8.
func sortEntries(entries []models.CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Featured != entries[j].Featured {
			return entries[i].Featured
		}
		return entries[i].Downloads > entries[j].Downloads
	})
}
