package storage

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/xuri/excelize/v2"

	"madrid-dashboard/models"
)

const exportSheet = "listados"

// XLSXWriter buffers listings in a workbook and writes it to the underlying
// writer on Close.
type XLSXWriter struct {
	mu   sync.Mutex
	out  io.Writer
	file *excelize.File
	next int
}

func NewXLSXWriter(w io.Writer) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: write header: %w", err)
	}
	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: freeze header: %w", err)
	}

	return &XLSXWriter{out: w, file: f, next: 2}, nil
}

func (x *XLSXWriter) Write(rows []models.PricedListing) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, l := range rows {
		cell, err := excelize.CoordinatesToCellName(1, x.next)
		if err != nil {
			return fmt.Errorf("xlsx: %w", err)
		}
		values := []any{cellFloat(l.Price), cellFloat(l.Area), l.Rooms, l.Location, l.SellerType, nil, l.FloorLabel, nil, cellFloat(l.PricePerArea)}
		if l.HasElevator.Valid {
			values[5] = l.HasElevator.Value
		}
		if l.FloorNumber.Valid {
			values[7] = l.FloorNumber.Value
		}
		if err := x.file.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", x.next, err)
		}
		x.next++
	}
	return nil
}

// cellFloat leaves NaN cells empty.
func cellFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// Close writes the workbook and releases it.
func (x *XLSXWriter) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	_, err := x.file.WriteTo(x.out)
	if cerr := x.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}
