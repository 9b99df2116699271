package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"apartment-finder/clients"
	"apartment-finder/metrics"
	"apartment-finder/models"
	"apartment-finder/utils"
)

const zillowOrigin = "https://www.zillow.com"

// Exclusion reasons, used as log text and metric labels.
const (
	reasonMissingCoords = "missing_coords"
	reasonNoRoute       = "no_route"
	reasonRoutingError  = "routing_error"
	reasonOutOfRadius   = "out_of_radius"
	reasonPrice         = "price"
	reasonURL           = "url"
)

// DistanceService resolves walking distances.
type DistanceService interface {
	WalkingMeters(ctx context.Context, origin, destination models.Coordinate) (float64, error)
}

// POIService finds points of interest around a coordinate.
type POIService interface {
	Nearby(ctx context.Context, at models.Coordinate, radiusM int, categories []string) ([]clients.Place, error)
}

// Enricher turns raw listings into enriched ones, dropping every listing
// that is out of range, mispriced or has no usable detail link.
type Enricher struct {
	distance      DistanceService
	poi           POIService
	placesRadiusM int
	logger        *utils.Logger
	metrics       *metrics.Pipeline
}

// NewEnricher creates an Enricher. placesRadiusM bounds the POI search around
// each listing.
func NewEnricher(distance DistanceService, poi POIService, placesRadiusM int, logger *utils.Logger, m *metrics.Pipeline) *Enricher {
	return &Enricher{
		distance:      distance,
		poi:           poi,
		placesRadiusM: placesRadiusM,
		logger:        logger,
		metrics:       m,
	}
}

// Enrich processes raw listings in order and returns the survivors. It never
// fails; per-listing problems either exclude the listing or leave its POI
// data unknown.
func (e *Enricher) Enrich(ctx context.Context, raw []models.RawListing, sc models.SearchConfig) []models.EnrichedListing {
	out := make([]models.EnrichedListing, 0, len(raw))
	band := sc.Band()

	for _, r := range raw {
		if ctx.Err() != nil {
			e.logger.Warn("[enricher] Stopping early: %v", ctx.Err())
			break
		}

		listing, reason := e.enrichOne(ctx, r, sc, band)
		if reason != "" {
			e.logger.Debug("[enricher] Excluding %q (%s): %s", r.Address, r.ID, reason)
			e.metrics.Excluded(reason)
			continue
		}
		out = append(out, listing)
	}

	e.logger.Info("[enricher] Enriched %d → %d listings (dropped %d)",
		len(raw), len(out), len(raw)-len(out))
	return out
}

// enrichOne returns the enriched listing, or the reason it was excluded.
func (e *Enricher) enrichOne(ctx context.Context, r models.RawListing, sc models.SearchConfig, band models.RentBand) (models.EnrichedListing, string) {
	if r.Latitude == nil || r.Longitude == nil {
		return models.EnrichedListing{}, reasonMissingCoords
	}
	at := models.Coordinate{Lat: *r.Latitude, Lon: *r.Longitude}

	meters, err := e.distance.WalkingMeters(ctx, at, sc.Office)
	if errors.Is(err, clients.ErrNoRoute) {
		return models.EnrichedListing{}, reasonNoRoute
	}
	if err != nil {
		e.logger.Warn("[enricher] Routing failed for %q: %v", r.Address, err)
		return models.EnrichedListing{}, reasonRoutingError
	}

	miles := utils.Round2(utils.MetersToMiles(meters))
	if miles > sc.RadiusMi {
		return models.EnrichedListing{}, reasonOutOfRadius
	}

	price, ok := ParsePrice(string(r.Price))
	if !ok || !band.Contains(price) {
		return models.EnrichedListing{}, reasonPrice
	}

	link, ok := CanonicalListingURL(r.DetailURL)
	if !ok {
		return models.EnrichedListing{}, reasonURL
	}

	listing := models.EnrichedListing{
		Address:     r.Address,
		Price:       string(r.Price),
		Latitude:    at.Lat,
		Longitude:   at.Lon,
		DistanceMi:  miles,
		RadiusBonus: RadiusBonus(miles),
		URL:         link,
	}
	e.attachPOI(ctx, &listing, at, sc.PlaceTypes)
	return listing, ""
}

// attachPOI fills the POI fields. A failed lookup leaves all of them nil;
// zero results set the count to 0 and leave the nearest-POI fields nil.
func (e *Enricher) attachPOI(ctx context.Context, l *models.EnrichedListing, at models.Coordinate, categories []string) {
	places, err := e.poi.Nearby(ctx, at, e.placesRadiusM, categories)
	if err != nil {
		e.logger.Warn("[enricher] POI lookup failed for %q, POI data unknown: %v", l.Address, err)
		e.metrics.POILookupFailed()
		return
	}

	l.PlacesCount = models.Int(len(places))
	if len(places) == 0 {
		return
	}
	nearest := places[0]
	l.NearestPOI = models.String(nearest.Name)
	l.NearestPOIDistMi = models.Float(utils.Round2(
		utils.HaversineMiles(at.Lat, at.Lon, nearest.Location.Lat, nearest.Location.Lon)))
}

// RadiusBonus scores a walking distance in miles: ≤0.5 → 9, ≤1.5 → 7,
// ≤2.0 → 5, otherwise 0.
func RadiusBonus(miles float64) int {
	switch {
	case miles <= 0.5:
		return 9
	case miles <= 1.5:
		return 7
	case miles <= 2.0:
		return 5
	default:
		return 0
	}
}

// CanonicalListingURL resolves a listing's detail reference to an absolute
// zillow.com URL. Relative paths are resolved against the main site.
func CanonicalListingURL(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "/") {
		ref = zillowOrigin + ref
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "zillow.com" && !strings.HasSuffix(host, ".zillow.com") {
		return "", false
	}
	return ref, true
}
