package tabular

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	_ "modernc.org/sqlite"
)

func loadSQLite(path string, opts Options) ([]orb.Point, Stats, error) {
	// sql.Open would silently create a missing database file.
	if _, err := os.Stat(path); err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := checkSQLiteColumns(db, opts); err != nil {
		return nil, Stats{}, err
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(opts.Table)).Scan(&total); err != nil {
		return nil, Stats{}, fmt.Errorf("count rows: %w", err)
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s",
		quoteIdent(opts.XColumn), quoteIdent(opts.YColumn), quoteIdent(opts.Table))
	rows, err := db.Query(query)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	b := newBuilder(total)
	for rows.Next() {
		var xv, yv any
		if err := rows.Scan(&xv, &yv); err != nil {
			b.skip()
			continue
		}
		x, xok := sqliteFloat(xv)
		y, yok := sqliteFloat(yv)
		b.add(x, xok, y, yok)
	}
	if err := rows.Err(); err != nil {
		return nil, b.stats, fmt.Errorf("iterate points: %w", err)
	}
	return b.points, b.stats, nil
}

func checkSQLiteColumns(db *sql.DB, opts Options) error {
	rows, err := db.Query("SELECT * FROM " + quoteIdent(opts.Table) + " LIMIT 0")
	if err != nil {
		return fmt.Errorf("query table %q: %w", opts.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read columns: %w", err)
	}
	if _, err := columnIndex(cols, opts.XColumn); err != nil {
		return err
	}
	_, err = columnIndex(cols, opts.YColumn)
	return err
}

func sqliteFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	case []byte:
		return parseFloat(string(val))
	case string:
		return parseFloat(val)
	}
	return 0, false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
