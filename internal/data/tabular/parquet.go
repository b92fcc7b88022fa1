package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/parquet-go/parquet-go"
)

const parquetBatchSize = 1024

// parquetColumn resolves a coordinate column to its leaf index and signedness.
type parquetColumn struct {
	index    int
	unsigned bool
}

func lookupParquetColumn(schema *parquet.Schema, name string) (parquetColumn, error) {
	leaf, ok := schema.Lookup(name)
	if !ok {
		return parquetColumn{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	col := parquetColumn{index: leaf.ColumnIndex}
	if lt := leaf.Node.Type().LogicalType(); lt != nil && lt.Integer != nil {
		col.unsigned = !lt.Integer.IsSigned
	}
	return col, nil
}

func loadParquet(path string, opts Options) ([]orb.Point, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("stat dataset: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open parquet: %w", err)
	}

	xcol, err := lookupParquetColumn(pf.Schema(), opts.XColumn)
	if err != nil {
		return nil, Stats{}, err
	}
	ycol, err := lookupParquetColumn(pf.Schema(), opts.YColumn)
	if err != nil {
		return nil, Stats{}, err
	}

	b := newBuilder(int(pf.NumRows()))
	batch := make([]parquet.Row, parquetBatchSize)

	for i, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, batch, xcol, ycol, b); err != nil {
			return nil, b.stats, fmt.Errorf("read row group %d: %w", i, err)
		}
	}
	return b.points, b.stats, nil
}

func readRowGroup(rg parquet.RowGroup, batch []parquet.Row, xcol, ycol parquetColumn, b *builder) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(batch)
		for _, row := range batch[:n] {
			x, xok := parquetFloat(row, xcol)
			y, yok := parquetFloat(row, ycol)
			b.add(x, xok, y, yok)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// parquetFloat coerces the value of col in row to float64. Non-numeric kinds and
// nulls report false.
func parquetFloat(row parquet.Row, col parquetColumn) (float64, bool) {
	for _, v := range row {
		if v.Column() != col.index {
			continue
		}
		if v.IsNull() {
			return 0, false
		}
		switch v.Kind() {
		case parquet.Double:
			return v.Double(), true
		case parquet.Float:
			return float64(v.Float()), true
		case parquet.Int32:
			if col.unsigned {
				return float64(v.Uint32()), true
			}
			return float64(v.Int32()), true
		case parquet.Int64:
			if col.unsigned {
				return float64(v.Uint64()), true
			}
			return float64(v.Int64()), true
		}
		return 0, false
	}
	return 0, false
}
