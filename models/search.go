package models

import (
	"errors"
	"strconv"
	"time"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SearchArea is the listing API's notion of a region: a center point and a
// diameter in miles.
type SearchArea struct {
	Center     Coordinate
	DiameterMi float64
}

// AreaAround builds the search area covering radiusMi around center.
func AreaAround(center Coordinate, radiusMi float64) SearchArea {
	return SearchArea{Center: center, DiameterMi: radiusMi * 2}
}

// String renders the area as "<lon> <lat>,<diameter>".
func (a SearchArea) String() string {
	return strconv.FormatFloat(a.Center.Lon, 'f', -1, 64) + " " +
		strconv.FormatFloat(a.Center.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(a.DiameterMi, 'f', -1, 64)
}

// RentBand is an inclusive monthly rent range.
type RentBand struct {
	Min int
	Max int
}

// Contains reports whether price lies inside the band, bounds included.
func (b RentBand) Contains(price int) bool {
	return b.Min <= price && price <= b.Max
}

// SearchConfig describes one search request. It is built once and passed by
// value through the pipeline.
type SearchConfig struct {
	RadiusMi   float64    `json:"radius_mi"`
	MinRent    int        `json:"min_rent"`
	MaxRent    int        `json:"max_rent"`
	PlaceTypes []string   `json:"place_types"`
	Office     Coordinate `json:"office"`
}

var (
	ErrInvalidRadius     = errors.New("radius must be positive")
	ErrInvalidRent       = errors.New("rent bounds must be positive")
	ErrNoPlaceCategories = errors.New("at least one place category is required")
)

// Validate checks the request fields. An inverted rent band is allowed and
// matches nothing.
func (c SearchConfig) Validate() error {
	if !(c.RadiusMi > 0) {
		return ErrInvalidRadius
	}
	if c.MinRent <= 0 || c.MaxRent <= 0 {
		return ErrInvalidRent
	}
	if len(c.PlaceTypes) == 0 {
		return ErrNoPlaceCategories
	}
	return nil
}

// Band returns the rent band of the request.
func (c SearchConfig) Band() RentBand {
	return RentBand{Min: c.MinRent, Max: c.MaxRent}
}

// RankPath records which strategy produced the final ordering.
type RankPath string

const (
	RankPathNone     RankPath = "none"
	RankPathRemote   RankPath = "remote"
	RankPathFallback RankPath = "fallback"
)

// SearchResult is the output of one pipeline run.
type SearchResult struct {
	ID       string          `json:"id"`
	Config   SearchConfig    `json:"config"`
	Listings []RankedListing `json:"listings"`
	Fetched  int             `json:"fetched"`
	Enriched int             `json:"enriched"`
	RankedBy RankPath        `json:"ranked_by"`
	Elapsed  time.Duration   `json:"elapsed_ns"`
}

// SearchReport summarises a SearchResult for the dashboard and the CLI.
type SearchReport struct {
	TotalListings  int            `json:"total_listings"`
	RankedBy       RankPath       `json:"ranked_by"`
	AvgDistanceMi  float64        `json:"avg_distance_mi"`
	ByRadiusBonus  map[int]int    `json:"by_radius_bonus"`
	UnknownPOI     int            `json:"unknown_poi"`
	NoPOINearby    int            `json:"no_poi_nearby"`
	Best           *RankedListing `json:"best,omitempty"`
	FunnelFetched  int            `json:"funnel_fetched"`
	FunnelEnriched int            `json:"funnel_enriched"`
}
