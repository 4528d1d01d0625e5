package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/catalyst/internal/contracts"
)

// ResolvedEntity is a ticker record plus its normalized issuer name
type ResolvedEntity struct {
	Record     contracts.TickerRecord
	Normalized string
}

// Resolver maps ticker symbols to issuers by exact lookup
// ⭐ SSOT: 티커 → 발행사 해석은 여기서만 수행
type Resolver struct {
	directory  map[string]contracts.TickerRecord
	normalizer *Normalizer
}

// NewResolver indexes the directory by trimmed, upper-cased symbol.
// An empty directory is fatal for a run.
func NewResolver(directory map[string]contracts.TickerRecord, normalizer *Normalizer) (*Resolver, error) {
	if len(directory) == 0 {
		return nil, contracts.ErrEmptyDirectory
	}

	index := make(map[string]contracts.TickerRecord, len(directory))
	for sym, rec := range directory {
		key := canonicalSymbol(sym)
		if key == "" {
			continue
		}
		rec.Symbol = key
		index[key] = rec
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("no usable symbols: %w", contracts.ErrEmptyDirectory)
	}

	return &Resolver{directory: index, normalizer: normalizer}, nil
}

// Resolve looks up symbol. A miss is not an error; the caller skips the candidate.
func (r *Resolver) Resolve(symbol string) (*ResolvedEntity, bool) {
	rec, ok := r.directory[canonicalSymbol(symbol)]
	if !ok {
		return nil, false
	}
	return &ResolvedEntity{
		Record:     rec,
		Normalized: r.normalizer.Normalize(rec.IssuerName),
	}, true
}

// Len returns the number of indexed symbols
func (r *Resolver) Len() int {
	return len(r.directory)
}

// Symbols returns every indexed symbol in sorted order
func (r *Resolver) Symbols() []string {
	out := make([]string, 0, len(r.directory))
	for s := range r.directory {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func canonicalSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Candidate is the best universe match for an issuer name
type Candidate struct {
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}

// Universe is the deduplicated set of normalized sponsor names used for the
// membership check. Membership uses the best single ratio with no containment short-circuit.
type Universe struct {
	names      []string
	runes      [][]rune
	normalizer *Normalizer
}

// NewUniverse normalizes and deduplicates names, keeping first-seen order
func NewUniverse(names []string, normalizer *Normalizer) *Universe {
	u := &Universe{normalizer: normalizer}

	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		n := normalizer.Normalize(raw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		u.names = append(u.names, n)
		u.runes = append(u.runes, []rune(n))
	}

	return u
}

// Len returns the number of distinct normalized names
func (u *Universe) Len() int {
	return len(u.names)
}

// IsInUniverse searches for the single best-scoring name and accepts it iff
// its ratio >= threshold. Ties go to the lexicographically greater name.
func (u *Universe) IsInUniverse(issuerName string, threshold float64) (bool, Candidate) {
	target := u.normalizer.Normalize(issuerName)
	if target == "" {
		return false, Candidate{}
	}
	tr := []rune(target)

	var best Candidate
	found := false
	for i, name := range u.names {
		floor := threshold
		if found && best.Ratio > floor {
			floor = best.Ratio
		}

		// upper bounds first; ties with the current best still need the full ratio
		if realQuickRatio(u.runes[i], tr) < floor || quickRatio(u.runes[i], tr) < floor {
			continue
		}

		r := Ratio(name, target)
		if r < threshold {
			continue
		}
		if !found || r > best.Ratio || (r == best.Ratio && name > best.Name) {
			best = Candidate{Name: name, Ratio: r}
			found = true
		}
	}

	return found, best
}
