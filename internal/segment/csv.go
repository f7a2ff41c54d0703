package segment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVDecoder reads light curves exported as comma separated values with a
// header row naming the columns. Lines starting with '#' are ignored.
type CSVDecoder struct {
	fluxColumn string
}

// NewCSVDecoder creates a decoder reading the given flux column.
func NewCSVDecoder(fluxColumn string) *CSVDecoder {
	if fluxColumn == "" {
		fluxColumn = ColumnPDCSAPFlux
	}
	return &CSVDecoder{fluxColumn: fluxColumn}
}

func (d *CSVDecoder) Decode(r io.Reader) (*Columns, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var idx [3]int
	for i, name := range []string{ColumnTime, d.fluxColumn, ColumnQuality} {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = col
	}

	cols := &Columns{}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		t, err := parseFloat(record[idx[0]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnTime, err)
		}
		f, err := parseFloat(record[idx[1]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, d.fluxColumn, err)
		}
		q, err := strconv.ParseInt(strings.TrimSpace(record[idx[2]]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColumnQuality, err)
		}

		cols.Time = append(cols.Time, t)
		cols.Flux = append(cols.Flux, f)
		cols.Quality = append(cols.Quality, int32(q))
	}

	return cols, nil
}

// parseFloat accepts empty cells as missing values.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return strconv.ParseFloat("NaN", 64)
	}
	return strconv.ParseFloat(s, 64)
}
