package segment

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

// lightCurveHDU is the index of the binary table holding the light curve in
// mission light-curve files. HDU 0 is the primary header.
const lightCurveHDU = 1

// tessRow mirrors the columns of a TESS light-curve table used here.
type tessRow struct {
	Time       float64 `fits:"TIME"`
	SAPFlux    float32 `fits:"SAP_FLUX"`
	PDCSAPFlux float32 `fits:"PDCSAP_FLUX"`
	Quality    int32   `fits:"QUALITY"`
}

// FITSDecoder reads light curves stored as FITS binary tables.
type FITSDecoder struct {
	fluxColumn string
}

// NewFITSDecoder creates a decoder reading the given flux column, either
// PDCSAP_FLUX or SAP_FLUX.
func NewFITSDecoder(fluxColumn string) *FITSDecoder {
	if fluxColumn == "" {
		fluxColumn = ColumnPDCSAPFlux
	}
	return &FITSDecoder{fluxColumn: fluxColumn}
}

func (d *FITSDecoder) Decode(r io.Reader) (cols *Columns, err error) {
	if d.fluxColumn != ColumnPDCSAPFlux && d.fluxColumn != ColumnSAPFlux {
		return nil, fmt.Errorf("unsupported FITS flux column %q", d.fluxColumn)
	}

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("opening FITS stream: %w", err)
	}
	defer closeWithError(f, &err)

	if len(f.HDUs()) <= lightCurveHDU {
		return nil, fmt.Errorf("expected a light curve table in HDU %d, file has %d HDUs", lightCurveHDU, len(f.HDUs()))
	}

	table, ok := f.HDU(lightCurveHDU).(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("HDU %d is not a table", lightCurveHDU)
	}

	for _, name := range []string{ColumnTime, d.fluxColumn, ColumnQuality} {
		if table.Index(name) < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, fmt.Errorf("reading table rows: %w", err)
	}
	defer closeWithError(rows, &err)

	n := int(table.NumRows())
	cols = &Columns{
		Time:    make([]float64, 0, n),
		Flux:    make([]float64, 0, n),
		Quality: make([]int32, 0, n),
	}

	var row tessRow
	for rows.Next() {
		if err = rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", cols.Len(), err)
		}

		flux := row.PDCSAPFlux
		if d.fluxColumn == ColumnSAPFlux {
			flux = row.SAPFlux
		}

		cols.Time = append(cols.Time, row.Time)
		cols.Flux = append(cols.Flux, float64(flux))
		cols.Quality = append(cols.Quality, row.Quality)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return cols, nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
