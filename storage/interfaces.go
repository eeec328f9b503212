package storage

import (
	"context"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
)

// Source is the interface any dataset backend must satisfy. Read returns
// every record keyed by column name, in source order.
type Source interface {
	Read(ctx context.Context) ([]services.RawRow, error)
	Close() error
}

// ListingWriter is the interface for exporting filtered listings.
type ListingWriter interface {
	Write(rows []models.PricedListing) error
	Close() error
}

// WriteAll writes rows to w and closes it. The first error wins.
func WriteAll(w ListingWriter, rows []models.PricedListing) error {
	err := w.Write(rows)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
