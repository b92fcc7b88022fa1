// Command gendata writes a synthetic clustered point dataset for the tile server.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog/log"

	"github.com/heatmap-tiles/server/internal/geo"
	"github.com/heatmap-tiles/server/internal/logger"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	Output   string  `short:"o" long:"output"   description:"Output file (.parquet, .csv, .csv.gz or .csv.zst)" default:"data/stored.parquet"`
	Count    int     `short:"n" long:"count"    description:"Number of points" default:"1000000"`
	Clusters int     `short:"k" long:"clusters" description:"Number of clusters" default:"25"`
	Spread   float64 `short:"s" long:"spread"   description:"Cluster standard deviation in degrees" default:"2.5"`
	Seed     int64   `long:"seed"               description:"Random seed" default:"1"`
}

// pointRow is one output record. Coordinates are Web Mercator meters.
type pointRow struct {
	X float64 `parquet:"X"`
	Y float64 `parquet:"Y"`
}

// maxLat keeps generated points inside the Web Mercator square.
const maxLat = 85.0

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if opts.Count <= 0 || opts.Clusters <= 0 {
		log.Fatal().Int("count", opts.Count).Int("clusters", opts.Clusters).Msg("Count and clusters must be positive")
	}

	rows := generate(rand.New(rand.NewSource(opts.Seed)), opts.Count, opts.Clusters, opts.Spread)

	if dir := filepath.Dir(opts.Output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create output directory")
		}
	}

	var err error
	if strings.HasSuffix(strings.ToLower(opts.Output), ".parquet") {
		err = parquet.WriteFile(opts.Output, rows)
	} else {
		err = writeCSVFile(opts.Output, rows)
	}
	if err != nil {
		log.Fatal().Err(err).Str("output", opts.Output).Msg("Failed to write dataset")
	}

	log.Info().
		Str("output", opts.Output).
		Int("points", len(rows)).
		Int("clusters", opts.Clusters).
		Msg("Dataset written")
}

// generate draws count points around clusters random centers, projected to meters.
func generate(rng *rand.Rand, count, clusters int, spread float64) []pointRow {
	type center struct{ lon, lat, weight float64 }

	centers := make([]center, clusters)
	total := 0.0
	for i := range centers {
		centers[i] = center{
			lon:    rng.Float64()*360 - 180,
			lat:    rng.Float64()*120 - 60,
			weight: rng.ExpFloat64(),
		}
		total += centers[i].weight
	}

	rows := make([]pointRow, 0, count)
	for len(rows) < count {
		pick := rng.Float64() * total
		c := centers[len(centers)-1]
		for _, cand := range centers {
			if pick < cand.weight {
				c = cand
				break
			}
			pick -= cand.weight
		}

		lon := c.lon + rng.NormFloat64()*spread
		lat := c.lat + rng.NormFloat64()*spread
		lon = math.Mod(lon+540, 360) - 180
		if lat > maxLat || lat < -maxLat {
			continue
		}

		p := geo.LngLatToMeters(lon, lat)
		rows = append(rows, pointRow{X: p.X(), Y: p.Y()})
	}
	return rows
}

func writeCSVFile(path string, rows []pointRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".gz"):
		w = gzip.NewWriter(f)
	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		w = zw
	default:
		w = nopCloser{f}
	}

	if err := writeCSV(w, rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeCSV(w io.Writer, rows []pointRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"X", "Y"}); err != nil {
		return err
	}
	record := make([]string, 2)
	for _, r := range rows {
		record[0] = strconv.FormatFloat(r.X, 'f', -1, 64)
		record[1] = strconv.FormatFloat(r.Y, 'f', -1, 64)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
