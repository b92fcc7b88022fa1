package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
)

func loadCSV(path string, opts Options) ([]orb.Point, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer closeFn()

	return readCSV(r, opts)
}

// decompress wraps r according to the file suffix.
func decompress(r io.Reader, path string) (io.Reader, func(), error) {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	}
	return r, func() {}, nil
}

func readCSV(r io.Reader, opts Options) ([]orb.Point, Stats, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, Stats{}, fmt.Errorf("%w: %q (empty file)", ErrColumnNotFound, opts.XColumn)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	xi, err := columnIndex(header, opts.XColumn)
	if err != nil {
		return nil, Stats{}, err
	}
	yi, err := columnIndex(header, opts.YColumn)
	if err != nil {
		return nil, Stats{}, err
	}

	b := newBuilder(1024)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			b.skip()
			continue
		}
		if err != nil {
			return nil, b.stats, fmt.Errorf("read csv: %w", err)
		}

		x, xok := parseFloat(record[xi])
		y, yok := parseFloat(record[yi])
		b.add(x, xok, y, yok)
	}
	return b.points, b.stats, nil
}
