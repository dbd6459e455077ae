package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Checker compares short texts (headline titles) by character n-gram overlap.
type Checker struct {
	threshold float64
	ngramSize int
}

func New(threshold float64, ngramSize int) *Checker {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	if ngramSize <= 0 {
		ngramSize = 3
	}
	return &Checker{threshold: threshold, ngramSize: ngramSize}
}

// normalize lowercases, strips accents and punctuation, and collapses whitespace,
// so "Cortes de AGUA en Bogotá" and "cortes de agua en bogota" compare equal.
func (c *Checker) normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case !prevSpace:
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// Grams extracts the set of character n-grams of the normalized text.
// Texts shorter than one n-gram yield a single gram holding the whole text.
func (c *Checker) Grams(text string) map[string]struct{} {
	runes := []rune(c.normalize(text))
	set := make(map[string]struct{})
	if len(runes) == 0 {
		return set
	}
	if len(runes) < c.ngramSize {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i <= len(runes)-c.ngramSize; i++ {
		set[string(runes[i:i+c.ngramSize])] = struct{}{}
	}
	return set
}

// Jaccard computes |A intersection B| / |A union B|.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similar reports whether two texts reach the configured threshold.
func (c *Checker) Similar(a, b string) bool {
	return Jaccard(c.Grams(a), c.Grams(b)) >= c.threshold
}

// Set accumulates accepted texts and rejects near-duplicates of them.
type Set struct {
	checker *Checker
	keys    map[string]bool
	grams   []map[string]struct{}
}

func (c *Checker) NewSet() *Set {
	return &Set{checker: c, keys: make(map[string]bool)}
}

// Seed registers an already accepted text without checking it.
func (s *Set) Seed(key, text string) {
	s.keys[key] = true
	s.grams = append(s.grams, s.checker.Grams(text))
}

// Add accepts text unless it is too similar to something already in the set.
// A key seen before is always accepted again, so re-fetching the same item
// refreshes it instead of discarding it as its own duplicate.
func (s *Set) Add(key, text string) bool {
	if key != "" && s.keys[key] {
		return true
	}
	g := s.checker.Grams(text)
	for _, existing := range s.grams {
		if Jaccard(g, existing) >= s.checker.threshold {
			return false
		}
	}
	if key != "" {
		s.keys[key] = true
	}
	s.grams = append(s.grams, g)
	return true
}

func (s *Set) Len() int { return len(s.grams) }
