package flow

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/logger"
)

// Column names of the options-flow export
const (
	ColSymbol     = "Sym"
	ColTime       = "Time"
	ColOptionType = "C/P"
	ColVolume     = "Vol"
	ColPremium    = "Prems"
)

// CSVSource loads raw flow rows from a CSV export
type CSVSource struct {
	path   string
	logger *logger.Logger
}

// NewCSVSource creates a CSV-backed candidate source
func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	return &CSVSource{
		path:   path,
		logger: log.WithField("module", "flow"),
	}
}

// Load reads every row. A missing file or missing required column is fatal.
func (s *CSVSource) Load(ctx context.Context) ([]contracts.RawTrade, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open flow csv: %w", err)
	}
	defer f.Close()

	rows, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read flow csv %s: %w", s.path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": s.path,
		"rows": len(rows),
	}).Info("Loaded options flow")

	return rows, nil
}

// ReadCSV reads raw flow rows from r. The premium column is optional.
func ReadCSV(ctx context.Context, r io.Reader) ([]contracts.RawTrade, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := indexColumns(header)
	for _, required := range []string{ColSymbol, ColTime, ColOptionType, ColVolume} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []contracts.RawTrade
	for row := 1; ; row++ {
		if row%1000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		out = append(out, contracts.RawTrade{
			Row:        row,
			Symbol:     field(rec, cols, ColSymbol),
			Time:       field(rec, cols, ColTime),
			OptionType: field(rec, cols, ColOptionType),
			Volume:     field(rec, cols, ColVolume),
			Premium:    field(rec, cols, ColPremium),
		})
	}

	return out, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func field(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
