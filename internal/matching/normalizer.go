package matching

import (
	"strings"
)

// NoiseTable is the versioned list of legal-suffix and industry-noise phrases.
// Phrases are applied in order, so multi-word phrases must precede the words they contain.
type NoiseTable struct {
	Version string   `yaml:"version" json:"version"`
	Phrases []string `yaml:"phrases" json:"phrases"`
}

// DefaultNoiseTable returns the built-in table
// ⭐ SSOT: 기본 noise word 목록 (버전 관리)
func DefaultNoiseTable() NoiseTable {
	return NoiseTable{
		Version: "v1",
		Phrases: []string{
			"inc", "corp", "ltd", "plc", "s a", "l p", "llc", "n v",
			"company", "companies", "group", "holdings", "holding",
			"international", "technologies", "technology",
			"pharmaceuticals", "pharmaceutical", "therapeutics", "therapeutic",
			"biosciences", "bioscience", "biopharma", "biotech", "pharma",
			"solutions", "systems", "laboratories", "labs", "lab",
			"resources", "energy", "financial", "capital", "management",
			"partners", "industries", "industry", "associates", "global",
			"bio", "health", "healthcare", "medical", "products",
			"development", "research",
		},
	}
}

// Normalizer canonicalizes organization names into comparable token strings.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	version string
	phrases [][]string
}

// NewNormalizer compiles a noise table. Phrases are tokenized the same way
// names are, so "S.A." and "s a" are the same rule.
func NewNormalizer(table NoiseTable) *Normalizer {
	n := &Normalizer{version: table.Version}

	seen := make(map[string]bool, len(table.Phrases))
	for _, p := range table.Phrases {
		tokens := tokenize(p)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		n.phrases = append(n.phrases, tokens)
	}

	return n
}

// Version returns the noise table version
func (n *Normalizer) Version() string {
	return n.version
}

// Normalize lower-cases raw, turns punctuation into whitespace, strips noise
// phrases on whole-token boundaries and collapses whitespace.
// The leading token is never stripped, so "Capital One" keeps "capital".
func (n *Normalizer) Normalize(raw string) string {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return ""
	}

	// strip to a fixpoint so Normalize(Normalize(x)) == Normalize(x)
	for {
		changed := false
		for _, phrase := range n.phrases {
			var removed bool
			tokens, removed = stripPhrase(tokens, phrase)
			changed = changed || removed
		}
		if !changed {
			break
		}
	}

	return strings.Join(tokens, " ")
}

// tokenize lower-cases s and splits it on whitespace and the , . - & set
func tokenize(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '.', '-', '&':
			return true
		}
		return isSpace(r)
	})
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', 0x85, 0xA0:
		return true
	}
	return false
}

// stripPhrase removes every occurrence of phrase starting at token index >= 1
func stripPhrase(tokens, phrase []string) ([]string, bool) {
	if len(tokens) <= len(phrase) {
		return tokens, false
	}

	out := tokens[:1:1]
	removed := false
	for i := 1; i < len(tokens); {
		if hasPrefix(tokens[i:], phrase) {
			i += len(phrase)
			removed = true
			continue
		}
		out = append(out, tokens[i])
		i++
	}

	if !removed {
		return tokens, false
	}
	return out, true
}

func hasPrefix(tokens, phrase []string) bool {
	if len(tokens) < len(phrase) {
		return false
	}
	for i, p := range phrase {
		if tokens[i] != p {
			return false
		}
	}
	return true
}
