package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"apartment-finder/models"
)

// ErrNoRoute means the routing service found no walking route.
var ErrNoRoute = errors.New("no walking route")

// Directions queries the Google Directions API for walking distances.
type Directions struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDirections creates a Directions client. baseURL is the API origin,
// e.g. https://maps.googleapis.com.
func NewDirections(baseURL, apiKey string, timeout time.Duration) *Directions {
	return &Directions{baseURL: baseURL, apiKey: apiKey, client: newHTTPClient(timeout)}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// WalkingMeters returns the length in meters of the first walking route from
// origin to destination. ErrNoRoute is returned when none exists.
func (d *Directions) WalkingMeters(ctx context.Context, origin, destination models.Coordinate) (float64, error) {
	params := url.Values{}
	params.Set("origin", latLng(origin))
	params.Set("destination", latLng(destination))
	params.Set("mode", "walking")
	params.Set("key", d.apiKey)

	var out directionsResponse
	if err := getJSON(ctx, d.client, "directions", d.baseURL+"/maps/api/directions/json?"+params.Encode(), &out); err != nil {
		return 0, err
	}

	switch out.Status {
	case "OK", "":
	case "ZERO_RESULTS", "NOT_FOUND":
		return 0, ErrNoRoute
	default:
		return 0, &StatusError{Service: "directions", Status: out.Status, Body: out.ErrorMessage}
	}

	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return 0, ErrNoRoute
	}

	var meters float64
	for _, leg := range out.Routes[0].Legs {
		meters += leg.Distance.Value
	}
	return meters, nil
}

func latLng(c models.Coordinate) string {
	return fmt.Sprintf("%v,%v", c.Lat, c.Lon)
}
