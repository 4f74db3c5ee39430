package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/miralcamp/camposync/internal/events"
	"github.com/miralcamp/camposync/internal/models"
)

// RefreshResult summarizes one reference-data refresh. Counts holds the
// per-collection record counts of a successful refresh; Skipped carries the
// precondition reason when no network call was attempted.
type RefreshResult struct {
	Refreshed bool           `json:"refreshed"`
	Counts    map[string]int `json:"counts,omitempty"`
	Skipped   string         `json:"skipped,omitempty"`
}

// CacheReferenceData replaces the cached reference collections with a fresh
// server snapshot. The four collections are fetched concurrently and the
// refresh is all-or-nothing: any fetch failure leaves every local
// collection and the last-update timestamp untouched.
func (s *Service) CacheReferenceData(ctx context.Context) (*RefreshResult, error) {
	if reason := s.ready(); reason != "" {
		return &RefreshResult{Skipped: reason}, nil
	}

	s.bus.Publish(events.CacheStarted{Message: "refreshing reference data"})
	s.logger.Info("reference refresh started")

	collections := models.ReferenceCollections
	fetched := make([][]*models.ReferenceRecord, len(collections))
	errs := make([]error, len(collections))

	var wg sync.WaitGroup
	for i, collection := range collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()
			fetched[i], errs[i] = s.client.FetchReference(ctx, collection)
		}(i, collection)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.bus.Publish(events.CacheFailed{Message: err.Error()})
			s.logger.Error("reference refresh failed", "collection", collections[i], "error", err)
			return nil, fmt.Errorf("refresh %s: %w", collections[i], err)
		}
	}

	sets := make(map[string][]*models.ReferenceRecord, len(collections))
	counts := make(map[string]int, len(collections))
	for i, collection := range collections {
		sets[collection] = fetched[i]
		counts[collection] = len(fetched[i])
	}

	if err := s.store.ReplaceReferenceData(sets, s.clock()); err != nil {
		s.bus.Publish(events.CacheFailed{Message: err.Error()})
		return nil, fmt.Errorf("store reference data: %w", err)
	}

	s.bus.Publish(events.CacheCompleted{
		Message: "reference data refreshed",
		Counts:  counts,
	})
	s.logger.Info("reference refresh completed", "counts", counts)

	return &RefreshResult{Refreshed: true, Counts: counts}, nil
}
