package app

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/roman-kulish/transit-search/internal/config"
)

const jpegQuality = 98

// ReportPath returns the figure path of target, <dir>/<target>_BLS.<format>.
func ReportPath(dir, target, format string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_BLS.%s", target, strings.ToLower(format)))
}

// WriteImage encodes img to path in the given format, creating the parent
// directory when needed.
func WriteImage(path, format string, img image.Image) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(format) {
	case config.FormatPNG:
		err = png.Encode(out, img)
	case config.FormatJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: jpegQuality,
		})
	default:
		err = fmt.Errorf("invalid image format: %s", format)
	}
	return err
}
