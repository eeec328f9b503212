package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
)

// CSVSource reads a delimited text file. The delimiter is detected from the
// header line: ';' when it appears more often than ','.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Read(ctx context.Context) ([]services.RawRow, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter(detectDelimiter(data)),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return rowsFromFrame(df, s.Path)
}

func (s *CSVSource) Close() error { return nil }

// XLSXSource reads the first sheet of a workbook.
type XLSXSource struct {
	Path string
}

func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{Path: path}
}

func (s *XLSXSource) Read(ctx context.Context) ([]services.RawRow, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// GetRows trims trailing empty cells; the frame needs rectangular input.
	width := len(records[0])
	for i, r := range records {
		for len(r) < width {
			r = append(r, "")
		}
		records[i] = r[:width]
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	return rowsFromFrame(df, s.Path)
}

func (s *XLSXSource) Close() error { return nil }

func rowsFromFrame(df dataframe.DataFrame, source string) ([]services.RawRow, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("parse: %w", df.Err)
	}

	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}
	for _, col := range models.RequiredColumns {
		if _, ok := present[col]; !ok {
			return nil, &MissingColumnError{Column: col, Source: source}
		}
	}

	rows := make([]services.RawRow, df.Nrow())
	for i := range rows {
		rows[i] = make(services.RawRow, len(models.RequiredColumns))
	}
	for _, col := range models.RequiredColumns {
		for i, v := range df.Col(col).Records() {
			rows[i][col] = v
		}
	}
	return rows, nil
}

func detectDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return ','
	}
	header := sc.Bytes()
	if bytes.Count(header, []byte{';'}) > bytes.Count(header, []byte{','}) {
		return ';'
	}
	return ','
}
