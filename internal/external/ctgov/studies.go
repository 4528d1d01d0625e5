package ctgov

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/logger"
)

// Column names of the ClinicalTrials.gov CSV export
const (
	ColNCTNumber      = "NCT Number"
	ColStudyTitle     = "Study Title"
	ColSponsor        = "Sponsor"
	ColCompletionDate = "Primary Completion Date"
)

// CSVSource reads study completion events from a ClinicalTrials.gov export
// ⭐ SSOT: 임상시험 데이터 로딩은 여기서만
type CSVSource struct {
	path   string
	logger *logger.Logger

	mu    sync.Mutex
	table *Table // 파일은 소스당 1회만 읽음
}

// NewCSVSource creates a study source backed by a CSV file
func NewCSVSource(path string, log *logger.Logger) *CSVSource {
	return &CSVSource{
		path:   path,
		logger: log.WithField("module", "ctgov"),
	}
}

// LoadStats counts the rows dropped before matching
type LoadStats struct {
	Rows     int
	Events   int
	Sponsors int
	NoDate   int
	NoName   int
	NoID     int
}

// Table is one parsed export
type Table struct {
	Events []contracts.Event
	// Sponsors holds every distinct non-empty sponsor in first-seen order,
	// including sponsors whose studies have no usable completion date.
	Sponsors []string
}

// GetEvents returns every study with a usable primary completion date, sponsor and NCT number
func (s *CSVSource) GetEvents(ctx context.Context) ([]contracts.Event, error) {
	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return table.Events, nil
}

// GetSponsors returns every sponsor named in the export, dated or not
func (s *CSVSource) GetSponsors(ctx context.Context) ([]string, error) {
	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return table.Sponsors, nil
}

func (s *CSVSource) load(ctx context.Context) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return s.table, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open studies csv: %w", err)
	}
	defer f.Close()

	table, stats, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read studies csv %s: %w", s.path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":     s.path,
		"rows":     stats.Rows,
		"events":   stats.Events,
		"sponsors": stats.Sponsors,
		"no_date":  stats.NoDate,
		"no_name":  stats.NoName,
		"no_id":    stats.NoID,
	}).Info("Loaded studies")

	s.table = table
	return table, nil
}

// ReadCSV parses a studies export. Rows without a parseable date, sponsor or
// NCT number are counted and dropped from Events; any row with a sponsor
// still contributes to Sponsors.
func ReadCSV(ctx context.Context, r io.Reader) (*Table, LoadStats, error) {
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, fmt.Errorf("empty file")
		}
		return nil, stats, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColNCTNumber, ColSponsor, ColCompletionDate} {
		if _, ok := cols[required]; !ok {
			return nil, stats, fmt.Errorf("missing column %q", required)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	table := &Table{}
	seen := make(map[string]struct{})
	for {
		if stats.Rows%1000 == 0 && ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}

		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if sponsor := get(rec, ColSponsor); sponsor != "" {
			if _, dup := seen[sponsor]; !dup {
				seen[sponsor] = struct{}{}
				table.Sponsors = append(table.Sponsors, sponsor)
			}
		}

		date, ok := ParseCompletionDate(get(rec, ColCompletionDate))
		if !ok {
			stats.NoDate++
			continue
		}

		ev := contracts.Event{
			SourceName: get(rec, ColSponsor),
			Date:       date,
			ID:         get(rec, ColNCTNumber),
			Kind:       contracts.EventKindPrimaryCompletion,
			Title:      get(rec, ColStudyTitle),
		}
		switch {
		case ev.SourceName == "":
			stats.NoName++
			continue
		case ev.ID == "":
			stats.NoID++
			continue
		}

		table.Events = append(table.Events, ev)
	}

	stats.Events = len(table.Events)
	stats.Sponsors = len(table.Sponsors)
	return table, stats, nil
}

// ParseCompletionDate accepts YYYY-MM-DD and YYYY-MM (first of the month)
func ParseCompletionDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01", "January 2, 2006", "January 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
