package services

import (
	"bytes"
	"testing"

	"apartment-finder/models"
	"apartment-finder/utils"
)

func rankedAt(rank int, address string, distance float64, bonus int, places *int) models.RankedListing {
	l := enriched(address, bonus, places)
	l.DistanceMi = distance
	return models.RankedListing{EnrichedListing: l, Rank: rank}
}

func TestReportGenerate(t *testing.T) {
	s := NewReportService(utils.NewNopLogger())
	res := &models.SearchResult{
		Fetched:  12,
		Enriched: 3,
		RankedBy: models.RankPathRemote,
		Listings: []models.RankedListing{
			rankedAt(2, "B", 1.2, 7, nil),
			rankedAt(1, "A", 0.4, 9, models.Int(3)),
			rankedAt(3, "C", 1.3, 7, models.Int(0)),
		},
	}

	r := s.Generate(res)

	if r.TotalListings != 3 {
		t.Errorf("TotalListings = %d; want 3", r.TotalListings)
	}
	if r.AvgDistanceMi != 0.97 {
		t.Errorf("AvgDistanceMi = %.2f; want 0.97", r.AvgDistanceMi)
	}
	if r.ByRadiusBonus[9] != 1 || r.ByRadiusBonus[7] != 2 {
		t.Errorf("ByRadiusBonus = %v; want map[7:2 9:1]", r.ByRadiusBonus)
	}
	if r.UnknownPOI != 1 || r.NoPOINearby != 1 {
		t.Errorf("UnknownPOI = %d, NoPOINearby = %d; want 1, 1", r.UnknownPOI, r.NoPOINearby)
	}
	if r.Best == nil || r.Best.Address != "A" {
		t.Errorf("Best = %+v; want listing A", r.Best)
	}
	if r.FunnelFetched != 12 || r.FunnelEnriched != 3 || r.RankedBy != models.RankPathRemote {
		t.Errorf("funnel = %d/%d/%s; want 12/3/remote", r.FunnelFetched, r.FunnelEnriched, r.RankedBy)
	}
}

func TestReportGenerateEmpty(t *testing.T) {
	s := NewReportService(utils.NewNopLogger())

	r := s.Generate(&models.SearchResult{Fetched: 4, RankedBy: models.RankPathNone})
	if r.TotalListings != 0 || r.Best != nil || r.AvgDistanceMi != 0 {
		t.Errorf("expected empty report, got %+v", r)
	}
	if r.FunnelFetched != 4 {
		t.Errorf("FunnelFetched = %d; want 4", r.FunnelFetched)
	}

	if r := s.Generate(nil); r.ByRadiusBonus == nil {
		t.Error("ByRadiusBonus should never be nil")
	}
}

func TestReportPrint(t *testing.T) {
	s := NewReportService(utils.NewNopLogger())
	r := s.Generate(&models.SearchResult{
		Fetched:  2,
		Enriched: 1,
		RankedBy: models.RankPathFallback,
		Listings: []models.RankedListing{rankedAt(1, "12 Palm Ave", 0.3, 9, models.Int(2))},
	})
	r.Best.NearestPOI = models.String("Palm Bakery")
	r.Best.NearestPOIDistMi = models.Float(0.1)

	var buf bytes.Buffer
	s.Print(&buf, r)
	out := buf.String()

	for _, want := range []string{"12 Palm Ave", "Palm Bakery (0.10 mi)", "fallback", "bonus 9", "0.30 mi"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}
}

func TestReportPrintEmpty(t *testing.T) {
	s := NewReportService(utils.NewNopLogger())
	var buf bytes.Buffer
	s.Print(&buf, s.Generate(&models.SearchResult{RankedBy: models.RankPathNone}))
	if !bytes.Contains(buf.Bytes(), []byte("No listings matched")) {
		t.Errorf("expected empty notice, got:\n%s", buf.String())
	}
}
