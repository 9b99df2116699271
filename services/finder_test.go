package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartment-finder/clients"
	"apartment-finder/metrics"
	"apartment-finder/models"
	"apartment-finder/utils"
)

type stubSource struct {
	listings []models.RawListing
	area     models.SearchArea
	band     models.RentBand
	calls    int
}

func (s *stubSource) Fetch(_ context.Context, area models.SearchArea, band models.RentBand) []models.RawListing {
	s.calls++
	s.area = area
	s.band = band
	return s.listings
}

func newTestFinder(t *testing.T, src ListingSource, dist DistanceService, c Completer, reg *prometheus.Registry) *Finder {
	logger := utils.NewTestLogger(t)
	m := metrics.New(reg)
	var remote RankStrategy
	if c != nil {
		remote = NewRemoteStrategy(c)
	}
	poi := &stubPOI{places: []clients.Place{{Name: "Bakery", Location: testOffice}}}
	return NewFinder(src,
		NewEnricher(dist, poi, 800, logger, m),
		NewRanker(remote, RankerOptions{MaxListings: 20, MaxAttempts: 3, BaseDelay: 0}, logger, m),
		logger, m)
}

func TestFinderEndToEnd(t *testing.T) {
	src := &stubSource{listings: []models.RawListing{
		raw("A", 34.01, "$2,450/mo", "/homedetails/1_zpid"),
		raw("B", 34.02, "$2,450/mo", "/homedetails/2_zpid"),
		raw("C", 34.03, "N/A", "/homedetails/3_zpid"),
	}}
	dist := &stubDistance{meters: map[float64]float64{34.01: 480, 34.02: 4100, 34.03: 900}}
	c := &scriptedCompleter{replies: []reply{{text: `[{"address":"A Main St","rank":1}]`}}}
	reg := prometheus.NewRegistry()

	res, err := newTestFinder(t, src, dist, c, reg).Search(context.Background(), testSearch())
	require.NoError(t, err)

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Enriched)
	assert.Equal(t, models.RankPathRemote, res.RankedBy)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "A Main St", res.Listings[0].Address)
	assert.Equal(t, 1, res.Listings[0].Rank)
	assert.Positive(t, res.Elapsed)

	assert.Equal(t, models.AreaAround(testOffice, 2), src.area)
	assert.Equal(t, models.RentBand{Min: 2100, Max: 3000}, src.band)
	assert.Equal(t, uint64(1), searchCount(t, reg))
}

func TestFinderRejectsInvalidConfig(t *testing.T) {
	src := &stubSource{}
	f := newTestFinder(t, src, &stubDistance{}, nil, prometheus.NewRegistry())

	sc := testSearch()
	sc.PlaceTypes = nil
	res, err := f.Search(context.Background(), sc)
	assert.ErrorIs(t, err, models.ErrNoPlaceCategories)
	assert.Nil(t, res)
	assert.Zero(t, src.calls)
}

func TestFinderEmptySourceShortCircuits(t *testing.T) {
	dist := &stubDistance{}
	c := &scriptedCompleter{replies: []reply{{text: "[]"}}}
	res, err := newTestFinder(t, &stubSource{}, dist, c, prometheus.NewRegistry()).
		Search(context.Background(), testSearch())
	require.NoError(t, err)

	assert.NotNil(t, res.Listings)
	assert.Empty(t, res.Listings)
	assert.Equal(t, models.RankPathNone, res.RankedBy)
	assert.Zero(t, dist.calls)
	assert.Zero(t, c.calls)
}

func TestFinderNothingSurvivesEnrichment(t *testing.T) {
	src := &stubSource{listings: []models.RawListing{raw("far", 34.02, "2500", "/homedetails/1_zpid")}}
	dist := &stubDistance{meters: map[float64]float64{34.02: 10000}}
	c := &scriptedCompleter{replies: []reply{{text: "[]"}}}

	res, err := newTestFinder(t, src, dist, c, prometheus.NewRegistry()).Search(context.Background(), testSearch())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Zero(t, res.Enriched)
	assert.Empty(t, res.Listings)
	assert.Zero(t, c.calls)
}

func TestFinderFallbackOrdersByRank(t *testing.T) {
	src := &stubSource{listings: []models.RawListing{
		raw("mid", 34.01, "2500", "/homedetails/1_zpid"),
		raw("near", 34.02, "2500", "/homedetails/2_zpid"),
		raw("far", 34.03, "2500", "/homedetails/3_zpid"),
	}}
	dist := &stubDistance{meters: map[float64]float64{34.01: 2000, 34.02: 300, 34.03: 3000}}
	c := &scriptedCompleter{replies: []reply{{err: &clients.StatusError{Service: "openai", StatusCode: 500}}}}

	res, err := newTestFinder(t, src, dist, c, prometheus.NewRegistry()).Search(context.Background(), testSearch())
	require.NoError(t, err)
	assert.Equal(t, models.RankPathFallback, res.RankedBy)
	assert.Equal(t, []string{"near Main St", "mid Main St", "far Main St"}, addresses(res.Listings))
	assert.Equal(t, []int{1, 2, 3}, ranks(res.Listings))
}

func TestFinderCapsRankedListings(t *testing.T) {
	var listings []models.RawListing
	meters := map[float64]float64{}
	for i := 0; i < 30; i++ {
		lat := 34.0 + float64(i)/1000
		meters[lat] = 100
		listings = append(listings, raw(strings.Repeat("x", i+1), lat, "2500", "/homedetails/z"))
	}

	res, err := newTestFinder(t, &stubSource{listings: listings}, &stubDistance{meters: meters}, nil, prometheus.NewRegistry()).
		Search(context.Background(), testSearch())
	require.NoError(t, err)
	assert.Equal(t, 30, res.Enriched)
	assert.Len(t, res.Listings, 20)
}

func searchCount(t *testing.T, reg *prometheus.Registry) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "search_duration_seconds" {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}
