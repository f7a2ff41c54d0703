package segment

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	ColumnTime       = "TIME"
	ColumnPDCSAPFlux = "PDCSAP_FLUX"
	ColumnSAPFlux    = "SAP_FLUX"
	ColumnQuality    = "QUALITY"
)

var (
	// ErrUnreadableSegment is returned when a source file cannot be parsed or
	// does not expose the required columns.
	ErrUnreadableSegment = errors.New("unreadable segment")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrNoDecoder is returned when no decoder handles the file extension.
	ErrNoDecoder = errors.New("no decoder for file type")
)

// Columns holds the three parallel arrays extracted from a source file.
type Columns struct {
	Time    []float64
	Flux    []float64
	Quality []int32
}

// Len returns the number of rows.
func (c *Columns) Len() int {
	return len(c.Time)
}

func (c *Columns) validate() error {
	if len(c.Flux) != len(c.Time) || len(c.Quality) != len(c.Time) {
		return fmt.Errorf("column length mismatch: time=%d flux=%d quality=%d",
			len(c.Time), len(c.Flux), len(c.Quality))
	}
	return nil
}

// Decoder extracts time, flux and quality columns from raw file content.
type Decoder interface {
	Decode(r io.Reader) (*Columns, error)
}

// Decoders maps lower-case file extensions (".fits") to decoders.
type Decoders map[string]Decoder

// DefaultDecoders returns decoders for FITS and CSV light curves reading the
// given flux column.
func DefaultDecoders(fluxColumn string) Decoders {
	fits := NewFITSDecoder(fluxColumn)
	return Decoders{
		".fits": fits,
		".fit":  fits,
		".csv":  NewCSVDecoder(fluxColumn),
	}
}

// For returns the decoder for the file name, or nil.
func (d Decoders) For(name string) Decoder {
	return d[strings.ToLower(path.Ext(name))]
}

// Supports reports whether a decoder exists for the file name.
func (d Decoders) Supports(name string) bool {
	return d.For(name) != nil
}
