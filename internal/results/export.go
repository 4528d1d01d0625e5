package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVHeader is the column order of the results CSV
var CSVHeader = []string{
	"Symbol", "Date", "Direction", "Entry", "Exit", "PnL", "PnL%", "Catalyst", "Study Title",
}

// WriteCSV writes rows with CSVHeader
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Symbol,
			r.Date.Format(time.RFC3339),
			r.Direction,
			formatFloat(r.Entry),
			formatFloat(r.Exit),
			formatFloat(r.PnL),
			formatFloat(r.PnLPercent),
			r.CatalystID,
			r.CatalystTitle,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", r.Symbol, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveCSV writes rows to path, creating parent directories
func SaveCSV(path string, rows []Row) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, rows) })
}

// SaveJSON writes v to path, creating parent directories
func SaveJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, v) })
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
