package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawListing holds one search hit exactly as the listing API returned it.
// Nothing here has been validated yet.
type RawListing struct {
	ID        TextValue `json:"zpid"`
	Address   string    `json:"address"`
	Price     TextValue `json:"price"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	DetailURL string    `json:"detailUrl"`
}

// EnrichedListing is a RawListing that survived the distance, price and URL
// filters, annotated with walking distance and nearby POI data.
//
// POI fields are pointers: nil means the lookup failed (unknown), which is
// distinct from a successful lookup with zero results.
type EnrichedListing struct {
	Address          string   `json:"address"`
	Price            string   `json:"price"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	DistanceMi       float64  `json:"distance"`
	RadiusBonus      int      `json:"radius_bonus"`
	URL              string   `json:"listing"`
	PlacesCount      *int     `json:"places_cnt"`
	NearestPOI       *string  `json:"nearest_poi"`
	NearestPOIDistMi *float64 `json:"nearest_poi_dist_mi"`
}

// RankedListing is an EnrichedListing with its position in the final order.
type RankedListing struct {
	EnrichedListing
	Rank int `json:"rank"`
}

// TextValue decodes a JSON string or number into its textual form. The
// listing API is inconsistent about price types.
type TextValue string

func (v *TextValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text value: expected string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*v = TextValue(strconv.FormatInt(i, 10))
		return nil
	}
	*v = TextValue(n.String())
	return nil
}

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
