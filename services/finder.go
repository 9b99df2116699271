package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"apartment-finder/metrics"
	"apartment-finder/models"
	"apartment-finder/utils"
)

// ListingSource supplies raw listings for an area and rent band.
type ListingSource interface {
	Fetch(ctx context.Context, area models.SearchArea, band models.RentBand) []models.RawListing
}

// Finder runs the whole search: fetch, enrich, rank.
type Finder struct {
	source   ListingSource
	enricher *Enricher
	ranker   *Ranker
	logger   *utils.Logger
	metrics  *metrics.Pipeline
}

func NewFinder(source ListingSource, enricher *Enricher, ranker *Ranker, logger *utils.Logger, m *metrics.Pipeline) *Finder {
	return &Finder{
		source:   source,
		enricher: enricher,
		ranker:   ranker,
		logger:   logger,
		metrics:  m,
	}
}

// Search returns the ranked listings for sc in ascending rank order. The only
// error is an invalid search config; every downstream degradation yields a
// partial or empty result instead.
func (f *Finder) Search(ctx context.Context, sc models.SearchConfig) (*models.SearchResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search: %w", err)
	}

	start := time.Now()
	result := &models.SearchResult{
		ID:       uuid.NewString(),
		Config:   sc,
		Listings: []models.RankedListing{},
		RankedBy: models.RankPathNone,
	}
	defer func() {
		result.Elapsed = time.Since(start)
		f.metrics.ObserveSearch(result.Elapsed.Seconds())
		f.logger.Info("[finder] Search %s finished in %v: %d listings (ranked by %s)",
			result.ID, result.Elapsed.Round(time.Millisecond), len(result.Listings), result.RankedBy)
	}()

	f.logger.Info("[finder] Search %s: radius %.2f mi, rent $%d-$%d, places %v",
		result.ID, sc.RadiusMi, sc.MinRent, sc.MaxRent, sc.PlaceTypes)

	area := models.AreaAround(sc.Office, sc.RadiusMi)
	raw := f.source.Fetch(ctx, area, sc.Band())
	result.Fetched = len(raw)
	f.logger.Info("[finder] Fetched %d listings", len(raw))
	if len(raw) == 0 {
		return result, nil
	}

	enriched := f.enricher.Enrich(ctx, raw, sc)
	result.Enriched = len(enriched)
	if len(enriched) == 0 {
		f.logger.Info("[finder] No listings survived enrichment")
		return result, nil
	}

	if limit := f.ranker.MaxListings(); len(enriched) > limit {
		enriched = enriched[:limit]
	}

	ranked, path := f.ranker.Rank(ctx, enriched)
	sortByRank(ranked)
	result.Listings = ranked
	result.RankedBy = path
	return result, nil
}
