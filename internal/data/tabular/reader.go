// Package tabular loads the startup point dataset from Parquet, CSV or SQLite files.
//
// Every decodable row yields exactly one point. A row whose X or Y value is null,
// missing or not a finite number gets 0.0 for that coordinate and is counted in
// Stats.Defaulted. Rows that cannot be decoded at all are skipped.
package tabular

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrColumnNotFound is returned when the X or Y column is absent from the dataset schema.
	ErrColumnNotFound = errors.New("column not found")
)

// Options selects the coordinate columns.
type Options struct {
	XColumn string
	YColumn string
	// Table is the SQLite table holding the points.
	Table string
}

// DefaultOptions returns the conventional X/Y column names.
func DefaultOptions() Options {
	return Options{XColumn: "X", YColumn: "Y", Table: "points"}
}

// Stats summarizes a load.
type Stats struct {
	Rows      int `json:"rows"`
	Defaulted int `json:"defaulted"`
	Skipped   int `json:"skipped"`
}

// Format identifies a dataset file type.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatSQLite  Format = "sqlite"
)

// DetectFormat picks the loader from the file extension.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".parquet"):
		return FormatParquet, nil
	case strings.HasSuffix(name, ".csv"),
		strings.HasSuffix(name, ".csv.gz"),
		strings.HasSuffix(name, ".csv.zst"):
		return FormatCSV, nil
	case strings.HasSuffix(name, ".sqlite"), strings.HasSuffix(name, ".db"):
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
}

// Load reads every row of the dataset at path into projected points.
func Load(path string, opts Options) ([]orb.Point, Stats, error) {
	if opts.XColumn == "" {
		opts.XColumn = "X"
	}
	if opts.YColumn == "" {
		opts.YColumn = "Y"
	}
	if opts.Table == "" {
		opts.Table = "points"
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, Stats{}, err
	}

	switch format {
	case FormatParquet:
		return loadParquet(path, opts)
	case FormatCSV:
		return loadCSV(path, opts)
	default:
		return loadSQLite(path, opts)
	}
}

// builder accumulates points and applies the default-to-zero policy.
type builder struct {
	points []orb.Point
	stats  Stats
}

func newBuilder(capacity int) *builder {
	return &builder{points: make([]orb.Point, 0, capacity)}
}

func (b *builder) add(x float64, xok bool, y float64, yok bool) {
	if !xok || !finite(x) {
		x = 0
		xok = false
	}
	if !yok || !finite(y) {
		y = 0
		yok = false
	}
	if !xok || !yok {
		b.stats.Defaulted++
	}
	b.points = append(b.points, orb.Point{x, y})
	b.stats.Rows++
}

func (b *builder) skip() {
	b.stats.Skipped++
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}
