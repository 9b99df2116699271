package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"apartment-finder/models"
	"apartment-finder/utils"
)

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(res *models.SearchResult) *models.SearchReport {
	report := &models.SearchReport{
		ByRadiusBonus: make(map[int]int),
		RankedBy:      models.RankPathNone,
	}
	if res == nil {
		return report
	}

	report.RankedBy = res.RankedBy
	report.FunnelFetched = res.Fetched
	report.FunnelEnriched = res.Enriched
	report.TotalListings = len(res.Listings)
	if len(res.Listings) == 0 {
		return report
	}

	var totalDistance float64
	for i, l := range res.Listings {
		totalDistance += l.DistanceMi
		report.ByRadiusBonus[l.RadiusBonus]++

		switch {
		case l.PlacesCount == nil:
			report.UnknownPOI++
		case *l.PlacesCount == 0:
			report.NoPOINearby++
		}

		if report.Best == nil || l.Rank < report.Best.Rank {
			report.Best = &res.Listings[i]
		}
	}
	report.AvgDistanceMi = utils.Round2(totalDistance / float64(len(res.Listings)))

	s.logger.Debug("[report] %d listings, avg %.2f mi, %d with unknown POI data",
		report.TotalListings, report.AvgDistanceMi, report.UnknownPOI)
	return report
}

func (s *ReportService) Print(w io.Writer, r *models.SearchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 APARTMENT SEARCH SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Funnel
	fmt.Fprintf(w, "\033[1;33m  Funnel\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings fetched     : \033[1m%d\033[0m\n", r.FunnelFetched)
	fmt.Fprintf(w, "  After enrichment     : \033[1m%d\033[0m\n", r.FunnelEnriched)
	fmt.Fprintf(w, "  Ranked               : \033[1m%d\033[0m (%s)\n", r.TotalListings, r.RankedBy)
	fmt.Fprintln(w)

	if r.TotalListings == 0 {
		fmt.Fprintf(w, "  No listings matched this search\n")
		fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	// Distance
	fmt.Fprintf(w, "\033[1;33m  Walking Distance\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Average distance : \033[1;32m%.2f mi\033[0m\n", r.AvgDistanceMi)
	fmt.Fprintf(w, "  Unknown POI data : %d\n", r.UnknownPOI)
	fmt.Fprintf(w, "  No POI nearby    : %d\n", r.NoPOINearby)
	fmt.Fprintln(w)

	if r.Best != nil {
		fmt.Fprintf(w, "\033[1;33m  Top Pick\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Best.Address, 50))
		fmt.Fprintf(w, "  Price    : \033[1;32m%s\033[0m\n", r.Best.Price)
		fmt.Fprintf(w, "  Distance : %.2f mi (bonus %d)\n", r.Best.DistanceMi, r.Best.RadiusBonus)
		if r.Best.NearestPOI != nil && r.Best.NearestPOIDistMi != nil {
			fmt.Fprintf(w, "  Nearest  : %s (%.2f mi)\n", truncate(*r.Best.NearestPOI, 36), *r.Best.NearestPOIDistMi)
		}
		fmt.Fprintf(w, "  Listing  : %s\n", r.Best.URL)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Listings by Radius Bonus\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	bonuses := make([]int, 0, len(r.ByRadiusBonus))
	for b := range r.ByRadiusBonus {
		bonuses = append(bonuses, b)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(bonuses)))
	for _, b := range bonuses {
		bar := strings.Repeat("█", r.ByRadiusBonus[b])
		fmt.Fprintf(w, "  bonus %-3d %s (%d)\n", b, bar, r.ByRadiusBonus[b])
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
