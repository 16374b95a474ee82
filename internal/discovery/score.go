// Package discovery ranks registered commands against a keyword.
package discovery

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/aidanlsb/nounverb/internal/registry"
)

// MatchType names the rule that produced a hit.
type MatchType string

const (
	MatchExact               MatchType = "exact"
	MatchPrefix              MatchType = "prefix"
	MatchContainsName        MatchType = "contains-name"
	MatchContainsDescription MatchType = "contains-description"
	MatchCategory            MatchType = "category"
	MatchFuzzy               MatchType = "fuzzy"
)

// MaxScore is the upper bound of every score.
const MaxScore = 100.0

// Weights is the scoring policy. Each rule contributes a fixed score; the
// fuzzy rule contributes Fuzzy scaled by the subsequence ratio, and only when
// the ratio exceeds FuzzyThreshold.
type Weights struct {
	Exact               float64
	Prefix              float64
	ContainsName        float64
	ContainsDescription float64
	Category            float64
	Fuzzy               float64
	FuzzyThreshold      float64
}

// DefaultWeights returns the stock policy: 100/90/80/60/50 and ratio*40 above 0.5.
func DefaultWeights() Weights {
	return Weights{
		Exact:               100,
		Prefix:              90,
		ContainsName:        80,
		ContainsDescription: 60,
		Category:            50,
		Fuzzy:               40,
		FuzzyThreshold:      0.5,
	}
}

// Validate checks that every weight is in (0, 100] and the threshold in [0, 1).
func (w Weights) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"exact", w.Exact},
		{"prefix", w.Prefix},
		{"contains_name", w.ContainsName},
		{"contains_description", w.ContainsDescription},
		{"category", w.Category},
		{"fuzzy", w.Fuzzy},
	} {
		if math.IsNaN(f.v) || f.v <= 0 || f.v > MaxScore {
			errs = append(errs, fmt.Errorf("search.%s must be in (0, 100], got %v", f.name, f.v))
		}
	}
	if math.IsNaN(w.FuzzyThreshold) || w.FuzzyThreshold < 0 || w.FuzzyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("search.fuzzy_threshold must be in [0, 1), got %v", w.FuzzyThreshold))
	}
	return errors.Join(errs...)
}

// Score rates one command against keyword and names the rule that matched.
// ok is false when no rule matched. Matching is case-insensitive; the name is
// the verb, and the full "noun verb" path also counts as an exact match.
//
// An empty keyword skips the literal rules and falls through to the fuzzy
// rule, where the empty pattern matches everything.
func (w Weights) Score(keyword string, e *registry.Entry) (score float64, match MatchType, ok bool) {
	kw := normalize(keyword)
	noun := strings.ToLower(e.Meta.Noun)
	verb := strings.ToLower(e.Meta.Verb)
	path := noun + " " + verb

	if kw != "" {
		switch {
		case kw == verb || kw == path:
			return w.Exact, MatchExact, true
		case strings.HasPrefix(verb, kw), strings.Contains(kw, " ") && strings.HasPrefix(path, kw):
			return w.Prefix, MatchPrefix, true
		case strings.Contains(verb, kw):
			return w.ContainsName, MatchContainsName, true
		case describes(strings.ToLower(e.Meta.Description), kw):
			return w.ContainsDescription, MatchContainsDescription, true
		case strings.Contains(noun, kw):
			return w.Category, MatchCategory, true
		}
	}

	ratio := FuzzyRatio(path, kw)
	if ratio > w.FuzzyThreshold {
		return ratio * w.Fuzzy, MatchFuzzy, true
	}
	return 0, "", false
}

// describes reports whether desc contains kw, or every word of a multi-word kw.
func describes(desc, kw string) bool {
	if desc == "" {
		return false
	}
	if strings.Contains(desc, kw) {
		return true
	}
	words := strings.Fields(kw)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(desc, w) {
			return false
		}
	}
	return true
}

// FuzzyRatio returns the share of pattern's runes that occur in text in order.
//
//	FuzzyRatio(anything, "")  == 1.0
//	FuzzyRatio("", "x")       == 0.0
//	FuzzyRatio("status", "stt") == 1.0
//	FuzzyRatio("status", "sx")  == 0.5
//
// The comparison is exact; callers lowercase both sides for case-insensitive matching.
func FuzzyRatio(text, pattern string) float64 {
	if pattern == "" {
		return 1.0
	}
	if text == "" {
		return 0.0
	}
	total := utf8.RuneCountInString(pattern)
	matched := 0
	rest := text
	for _, p := range pattern {
		i := strings.IndexRune(rest, p)
		if i < 0 {
			continue
		}
		matched++
		_, size := utf8.DecodeRuneInString(rest[i:])
		rest = rest[i+size:]
	}
	return float64(matched) / float64(total)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// usable reports whether a score may enter the ranking.
func usable(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0) && score > 0
}
