package orchestrator

import (
	"context"

	"github.com/agentmem/agentmem/internal/cache"
	"github.com/agentmem/agentmem/internal/repository"
	"github.com/agentmem/agentmem/internal/vectorindex"
)

// Stats aggregates the point-in-time counters spec §6's `stats()` surface
// exposes: repository row counts, vector-index size/tuning, and cache
// hit rate.
type Stats struct {
	Repository repository.Stats
	Vector     vectorindex.Stats
	Cache      cache.Stats
}

// Stats gathers Repository and VectorIndex statistics, plus Cache
// statistics when a cache is configured.
func (o *Orchestrator) Stats(ctx context.Context) (Stats, error) {
	repoStats, err := o.Repository.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	vecStats, err := o.VectorIndex.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	var cacheStats cache.Stats
	if o.Cache != nil && o.Cache.L1 != nil {
		cacheStats = o.Cache.L1.Stats()
	}
	return Stats{Repository: repoStats, Vector: vecStats, Cache: cacheStats}, nil
}
