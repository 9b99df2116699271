package storage

import "apartment-finder/models"

// ResultWriter is the interface any export backend must satisfy.
type ResultWriter interface {
	Write(listings []models.RankedListing) error
	Close() error
}

var _ ResultWriter = (*CSVWriter)(nil)
