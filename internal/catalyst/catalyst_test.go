package catalyst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/matching"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func event(id, name string, date time.Time) contracts.Event {
	return contracts.Event{ID: id, SourceName: name, Date: date, Kind: contracts.EventKindPrimaryCompletion}
}

func TestWindow_Inclusive(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 14, 37, 0, 0, time.UTC)
	w := Window{LookbackDays: 30, LookforwardDays: 30}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"lower bound", anchor.AddDate(0, 0, -30), true},
		{"upper bound", anchor.AddDate(0, 0, 30), true},
		{"lower bound, earlier time of day", day(2024, 2, 14), true},
		{"upper bound, late in the day", time.Date(2024, 4, 14, 23, 59, 0, 0, time.UTC), true},
		{"one day before", anchor.AddDate(0, 0, -31), false},
		{"one day after", anchor.AddDate(0, 0, 31), false},
		{"anchor day", day(2024, 3, 15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(anchor, tt.date))
		})
	}
}

func TestWindow_ZeroWidth(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	w := Window{}

	assert.True(t, w.Contains(anchor, day(2024, 3, 15)))
	assert.False(t, w.Contains(anchor, day(2024, 3, 14)))
	assert.False(t, w.Contains(anchor, day(2024, 3, 16)))
}

func TestFindCatalysts(t *testing.T) {
	anchor := day(2024, 3, 15)
	w := Window{LookbackDays: 5, LookforwardDays: 5}
	events := []contracts.Event{
		event("B", "Beta", day(2024, 3, 20)),
		event("OUT", "Out", day(2024, 3, 21)),
		event("A", "Alpha", day(2024, 3, 10)),
		event("NODATE", "No Date", time.Time{}),
	}

	got := FindCatalysts(anchor, w, events)

	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "A", got[1].ID)
}

func TestFindCatalysts_Empty(t *testing.T) {
	got := FindCatalysts(day(2024, 3, 15), Window{LookbackDays: 1, LookforwardDays: 1}, []contracts.Event{
		event("X", "X", day(2023, 1, 1)),
	})

	assert.Empty(t, got)
}

func TestHasNews(t *testing.T) {
	anchor := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	w := Window{LookbackDays: 1, LookforwardDays: 1}

	filings := []contracts.Event{
		{ID: "0001", SourceName: "Zeta", Kind: "4", Date: day(2024, 3, 16)},
		{ID: "0002", SourceName: "Zeta", Kind: "10-K", Date: day(2024, 1, 2)},
	}

	news, found := HasNews(anchor, w, filings)
	assert.True(t, news)
	require.Len(t, found, 1)
	assert.Equal(t, "0001", found[0].ID)

	news, found = HasNews(anchor, w, filings[1:])
	assert.False(t, news)
	assert.Empty(t, found)

	news, _ = HasNews(anchor, w, nil)
	assert.False(t, news)
}

func TestStudyIndex_FindMatch(t *testing.T) {
	n := matching.NewNormalizer(matching.DefaultNoiseTable())
	m := matching.NewMatcher(0)
	anchor := day(2024, 3, 1)
	w := Window{LookbackDays: 30, LookforwardDays: 30}

	idx := NewStudyIndex([]contracts.Event{
		event("NCT-OLD", "Zeta Biosciences", day(2023, 1, 1)),
		event("NCT-OMEGA", "Omega Pharma", day(2024, 3, 5)),
		event("NCT-ZETA-1", "Zeta Biosciences", day(2024, 3, 11)),
		event("NCT-ZETA-2", "Zeta Biosciences LLC", day(2024, 3, 12)),
		event("", "Zeta Biosciences", day(2024, 3, 12)),
	}, n, m, 0.85)

	assert.Equal(t, 4, idx.Len())

	ev, score, ok := idx.FindMatch(anchor, w, "zeta")
	require.True(t, ok)
	assert.Equal(t, "NCT-ZETA-1", ev.ID)
	assert.Equal(t, 1.0, score)

	_, _, ok = idx.FindMatch(anchor, w, "unrelated")
	assert.False(t, ok)

	_, _, ok = idx.FindMatch(anchor, w, "")
	assert.False(t, ok)
}

func TestStudyIndex_InWindow(t *testing.T) {
	n := matching.NewNormalizer(matching.DefaultNoiseTable())
	idx := NewStudyIndex([]contracts.Event{
		event("1", "Zeta Biosciences", day(2024, 3, 2)),
		event("2", "Omega Pharma", day(2024, 6, 1)),
	}, n, matching.NewMatcher(0), 0.85)

	got := idx.InWindow(day(2024, 3, 1), Window{LookbackDays: 0, LookforwardDays: 10})

	require.Len(t, got, 1)
	assert.Equal(t, "zeta", got[0].Normalized)
}

func TestStudyIndex_ScoreInWindow(t *testing.T) {
	n := matching.NewNormalizer(matching.DefaultNoiseTable())
	idx := NewStudyIndex([]contracts.Event{
		event("1", "Zeta Biosciences", day(2024, 3, 2)),
		event("2", "Zetta Corp", day(2024, 3, 3)),
		event("3", "Omega Pharma", day(2024, 3, 4)),
		event("4", "Zeta Biosciences", day(2024, 9, 1)),
	}, n, matching.NewMatcher(4), 0.95)

	got := idx.ScoreInWindow(day(2024, 3, 1), Window{LookbackDays: 30, LookforwardDays: 30}, "zeta", 0.5)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Event.ID)
	assert.Equal(t, 1.0, got[0].Ratio)
	assert.True(t, got[0].Matched)

	assert.Equal(t, "2", got[1].Event.ID)
	assert.InDelta(t, 8.0/9.0, got[1].Ratio, 1e-9)
	// 임계값 미만이고 부분 문자열 관계도 아님
	assert.False(t, got[1].Matched)

	assert.Nil(t, idx.ScoreInWindow(day(2024, 3, 1), Window{}, "", 0.5))
}
