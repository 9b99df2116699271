package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"apartment-finder/models"
)

// Place is one nearby-search hit.
type Place struct {
	Name     string
	Location models.Coordinate
}

// Places queries the Google Places Nearby Search API.
type Places struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPlaces creates a Places client. baseURL is the API origin,
// e.g. https://maps.googleapis.com.
func NewPlaces(baseURL, apiKey string, timeout time.Duration) *Places {
	return &Places{baseURL: baseURL, apiKey: apiKey, client: newHTTPClient(timeout)}
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name     string `json:"name"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Nearby runs a single nearby search around at, matching any of categories,
// within radiusM meters. Results keep the service's order. Only the "OK" and
// "ZERO_RESULTS" statuses are treated as success.
func (p *Places) Nearby(ctx context.Context, at models.Coordinate, radiusM int, categories []string) ([]Place, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("location", latLng(at))
	params.Set("radius", strconv.Itoa(radiusM))
	params.Set("type", strings.Join(categories, "|"))

	var out nearbyResponse
	if err := getJSON(ctx, p.client, "places", p.baseURL+"/maps/api/place/nearbysearch/json?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	switch out.Status {
	case "OK", "ZERO_RESULTS":
	default:
		return nil, &StatusError{Service: "places", Status: out.Status, Body: out.ErrorMessage}
	}

	places := make([]Place, 0, len(out.Results))
	for _, r := range out.Results {
		places = append(places, Place{
			Name:     r.Name,
			Location: models.Coordinate{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		})
	}
	return places, nil
}
