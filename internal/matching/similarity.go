package matching

import (
	"strings"
	"unicode/utf8"
)

// DefaultContainmentMinLength is the shortest name (in runes) eligible for the
// containment short-circuit. Names of 3 runes or fewer always go through the ratio.
const DefaultContainmentMinLength = 4

// Matcher decides whether two normalized names denote the same entity
// ⭐ SSOT: 모든 이름 매칭은 이 정책을 사용
type Matcher struct {
	containmentMinLength int
}

// NewMatcher creates a Matcher. minLength <= 0 selects the default.
func NewMatcher(containmentMinLength int) *Matcher {
	if containmentMinLength <= 0 {
		containmentMinLength = DefaultContainmentMinLength
	}
	return &Matcher{containmentMinLength: containmentMinLength}
}

// IsSimilar applies, in order: empty → false, equal → true,
// containment (both long enough) → true, otherwise Ratio >= threshold.
func (m *Matcher) IsSimilar(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if m.contains(a, b) {
		return true
	}
	return Ratio(a, b) >= threshold
}

// Score returns the similarity used by IsSimilar: 1.0 on equality or
// containment, the ratio otherwise, 0 when either side is empty.
func (m *Matcher) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b || m.contains(a, b) {
		return 1
	}
	return Ratio(a, b)
}

func (m *Matcher) contains(a, b string) bool {
	if utf8.RuneCountInString(a) < m.containmentMinLength || utf8.RuneCountInString(b) < m.containmentMinLength {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Ratio is the Ratcliff/Obershelp similarity 2*M/T over runes, where M is the
// number of characters in the recursively found longest matching blocks.
// The pair is ordered before matching so Ratio(a, b) == Ratio(b, a).
func Ratio(a, b string) float64 {
	if b < a {
		a, b = b, a
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingCharacters(ra, rb)) / float64(total)
}

// quickRatio is an upper bound on Ratio from the shared character multiset
func quickRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}

	avail := make(map[rune]int, len(b))
	for _, r := range b {
		avail[r]++
	}
	matches := 0
	for _, r := range a {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

// realQuickRatio is an upper bound on Ratio from the lengths alone
func realQuickRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(min(len(a), len(b))) / float64(total)
}

type span struct {
	alo, ahi, blo, bhi int
}

// matchingCharacters sums the sizes of the matching blocks of a and b
func matchingCharacters(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b2j, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest common block inside s, preferring the
// earliest start in a and then in b
func longestMatch(a []rune, b2j map[rune][]int, s span) (besti, bestj, bestsize int) {
	besti, bestj = s.alo, s.blo
	j2len := map[int]int{}
	for i := s.alo; i < s.ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
