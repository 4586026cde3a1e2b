package measurement

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/estimation-core/internal/quantum"
)

// Fiducials is the bundled table of SIC fiducial vectors, one file per
// dimension named sic_fiducial_vectors/d<dim>.txt. Each line holds the
// real and imaginary part of one amplitude.
//
//go:embed sic_fiducial_vectors/*.txt
var Fiducials embed.FS

// FiducialPath is the dataset path for dimension dim.
func FiducialPath(dim int) string {
	return fmt.Sprintf("sic_fiducial_vectors/d%d.txt", dim)
}

// LoadFiducial reads and normalizes the fiducial vector for dim from fsys.
func LoadFiducial(fsys fs.FS, dim int) ([]complex128, error) {
	path := FiducialPath(dim)
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &quantum.ResourceNotFoundError{Resource: "SIC fiducial vector", Name: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var v []complex128
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected 2 columns, got %d", path, line, len(fields))
		}
		re, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		im, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		v = append(v, complex(re, im))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(v) != dim {
		return nil, fmt.Errorf("%s: expected %d amplitudes, got %d", path, dim, len(v))
	}
	return quantum.Normalize(v)
}
