package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"madrid-dashboard/models"
)

// ExportColumns is the header of every export: the source columns followed
// by the derived price per m².
var ExportColumns = append(append([]string(nil), models.RequiredColumns...), "precio_m2")

// CSVWriter writes listings as comma separated values.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter writes the header row to w.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	return &CSVWriter{writer: cw}, nil
}

// NewCSVFileWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVFileWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	cw, err := NewCSVWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	cw.closer = f
	return cw, nil
}

func (c *CSVWriter) Write(rows []models.PricedListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range rows {
		if err := c.writer.Write(exportRecord(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// exportRecord renders l in ExportColumns order. Missing values are empty.
func exportRecord(l models.PricedListing) []string {
	floor := ""
	if l.FloorNumber.Valid {
		floor = formatFloat(l.FloorNumber.Value)
	}
	return []string{
		formatFloat(l.Price),
		formatFloat(l.Area),
		strconv.Itoa(l.Rooms),
		l.Location,
		l.SellerType,
		formatBool(l.HasElevator),
		l.FloorLabel,
		floor,
		formatFloat(l.PricePerArea),
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b models.NullBool) string {
	if !b.Valid {
		return ""
	}
	return strconv.FormatBool(b.Value)
}
