package ctgov

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/pkg/logger"
)

const studiesCSV = "NCT Number,Study Title,Sponsor,Primary Completion Date,Phases\n" +
	"NCT00000001,\"Zeta-101 in Adults, Phase 2\",Zeta Biosciences,2024-03-11,PHASE2\n" +
	"NCT00000002,Omega Trial,Omega Pharma,2024-05,PHASE3\n" +
	"NCT00000003,No Date Trial,Alpha Labs,,PHASE1\n" +
	"NCT00000004,No Sponsor Trial,,2024-01-01,PHASE1\n" +
	",No ID Trial,Beta Corp,2024-01-01,PHASE1\n"

func TestReadCSV(t *testing.T) {
	table, stats, err := ReadCSV(context.Background(), strings.NewReader(studiesCSV))
	require.NoError(t, err)

	events := table.Events
	require.Len(t, events, 2)
	assert.Equal(t, contracts.Event{
		SourceName: "Zeta Biosciences",
		Date:       time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		ID:         "NCT00000001",
		Kind:       contracts.EventKindPrimaryCompletion,
		Title:      "Zeta-101 in Adults, Phase 2",
	}, events[0])
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), events[1].Date)

	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.NoDate)
	assert.Equal(t, 1, stats.NoName)
	assert.Equal(t, 1, stats.NoID)

	// 날짜 없는 Alpha Labs, NCT 없는 Beta Corp도 스폰서 목록에는 포함
	assert.Equal(t, []string{"Zeta Biosciences", "Omega Pharma", "Alpha Labs", "Beta Corp"}, table.Sponsors)
	assert.Equal(t, 4, stats.Sponsors)
}

func TestReadCSV_DuplicateSponsors(t *testing.T) {
	csv := "NCT Number,Study Title,Sponsor,Primary Completion Date\n" +
		"NCT1,A,Zeta Biosciences,\n" +
		"NCT2,B,Zeta Biosciences,2024-01-01\n"

	table, _, err := ReadCSV(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta Biosciences"}, table.Sponsors)
	assert.Len(t, table.Events, 1)
}

func TestReadCSV_MissingColumn(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader("NCT Number,Sponsor\nNCT1,Zeta\n"))
	assert.ErrorContains(t, err, ColCompletionDate)
}

func TestParseCompletionDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-11", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), true},
		{"2024-03", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"March 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"soon", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseCompletionDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCSVSource_GetEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctg-studies.csv")
	require.NoError(t, os.WriteFile(path, []byte(studiesCSV), 0o644))

	events, err := NewCSVSource(path, logger.Nop()).GetEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "none.csv"), logger.Nop()).GetEvents(context.Background())
	assert.Error(t, err)
}

func TestCSVSource_GetSponsors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctg-studies.csv")
	require.NoError(t, os.WriteFile(path, []byte(studiesCSV), 0o644))

	src := NewCSVSource(path, logger.Nop())
	sponsors, err := src.GetSponsors(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sponsors, "Alpha Labs")

	// 한 번 읽은 뒤에는 파일이 없어도 캐시된 테이블을 사용
	require.NoError(t, os.Remove(path))
	events, err := src.GetEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
