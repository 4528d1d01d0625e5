package catalyst

import (
	"time"

	"github.com/wonny/catalyst/internal/contracts"
	"github.com/wonny/catalyst/internal/matching"
)

// IndexedStudy is a study event with its sponsor name normalized once
type IndexedStudy struct {
	Event      contracts.Event
	Normalized string
}

// StudyIndex holds the read-only study table for a run
// ⭐ SSOT: 스폰서 이름 정규화는 인덱스 생성 시 1회만 수행
type StudyIndex struct {
	studies   []IndexedStudy
	matcher   *matching.Matcher
	threshold float64
}

// NewStudyIndex drops invalid events and normalizes sponsors, keeping input order
func NewStudyIndex(events []contracts.Event, normalizer *matching.Normalizer, matcher *matching.Matcher, threshold float64) *StudyIndex {
	idx := &StudyIndex{
		studies:   make([]IndexedStudy, 0, len(events)),
		matcher:   matcher,
		threshold: threshold,
	}
	for _, e := range events {
		if !e.Valid() {
			continue
		}
		idx.studies = append(idx.studies, IndexedStudy{
			Event:      e,
			Normalized: normalizer.Normalize(e.SourceName),
		})
	}
	return idx
}

// Len returns the number of indexed studies
func (s *StudyIndex) Len() int {
	return len(s.studies)
}

// InWindow returns the indexed studies inside the window, in index order
func (s *StudyIndex) InWindow(anchor time.Time, w Window) []IndexedStudy {
	var out []IndexedStudy
	for _, st := range s.studies {
		if w.Contains(anchor, st.Event.Date) {
			out = append(out, st)
		}
	}
	return out
}

// FindMatch returns the first study that is in the window and whose sponsor is
// similar to issuerNormalized. There is no scoring across multiple matches.
func (s *StudyIndex) FindMatch(anchor time.Time, w Window, issuerNormalized string) (*contracts.Event, float64, bool) {
	if issuerNormalized == "" {
		return nil, 0, false
	}
	for _, st := range s.studies {
		if !w.Contains(anchor, st.Event.Date) {
			continue
		}
		if s.matcher.IsSimilar(issuerNormalized, st.Normalized, s.threshold) {
			ev := st.Event
			return &ev, s.matcher.Score(issuerNormalized, st.Normalized), true
		}
	}
	return nil, 0, false
}

// ScoredStudy is an in-window study with its raw similarity ratio
type ScoredStudy struct {
	IndexedStudy
	Ratio   float64
	Matched bool // IsSimilar at the index threshold
}

// ScoreInWindow scores every in-window sponsor against issuerNormalized and keeps
// those with a ratio above floor. Used to calibrate the match threshold.
func (s *StudyIndex) ScoreInWindow(anchor time.Time, w Window, issuerNormalized string, floor float64) []ScoredStudy {
	if issuerNormalized == "" {
		return nil
	}
	var out []ScoredStudy
	for _, st := range s.InWindow(anchor, w) {
		ratio := matching.Ratio(issuerNormalized, st.Normalized)
		if ratio <= floor {
			continue
		}
		out = append(out, ScoredStudy{
			IndexedStudy: st,
			Ratio:        ratio,
			Matched:      s.matcher.IsSimilar(issuerNormalized, st.Normalized, s.threshold),
		})
	}
	return out
}
