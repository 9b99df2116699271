package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"apartment-finder/models"
)

// Header is the column order of exported result files.
var Header = []string{
	"rank", "address", "price", "distance", "radius_bonus", "places_cnt",
	"nearest_poi", "nearest_poi_dist_mi", "listing", "latitude", "longitude",
}

// CSVWriter writes ranked listings as CSV. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter writes the header row to w and returns a writer for the rows.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}

	c := &CSVWriter{writer: cw}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c, nil
}

// NewCSVFile creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVFile(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	c, err := NewCSVWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

// Write appends one row per listing. Unknown values are empty cells.
func (c *CSVWriter) Write(listings []models.RankedListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(row(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and, for files, closes the underlying destination.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if c.closer == nil {
		return c.writer.Error()
	}
	return c.closer.Close()
}

func row(l models.RankedListing) []string {
	return []string{
		strconv.Itoa(l.Rank),
		l.Address,
		l.Price,
		formatFloat(l.DistanceMi),
		strconv.Itoa(l.RadiusBonus),
		optionalInt(l.PlacesCount),
		optionalString(l.NearestPOI),
		optionalFloat(l.NearestPOIDistMi),
		l.URL,
		formatFloat(l.Latitude),
		formatFloat(l.Longitude),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
