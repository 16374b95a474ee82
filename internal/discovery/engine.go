package discovery

import (
	"cmp"
	"math"
	"slices"

	"github.com/aidanlsb/nounverb/internal/registry"
)

// Result is one ranked command.
type Result struct {
	Entry     *registry.Entry `json:"-" yaml:"-"`
	Name      string          `json:"name" yaml:"name"`
	About     string          `json:"about,omitempty" yaml:"about,omitempty"`
	Score     float64         `json:"score" yaml:"score"`
	MatchType MatchType       `json:"match_type" yaml:"match_type"`
}

// Source lists the commands to rank. *registry.Registry implements it.
type Source interface {
	ListAll() ([]*registry.Entry, error)
}

// Engine ranks the commands of a Source.
type Engine struct {
	src     Source
	weights Weights
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights replaces the default scoring policy.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

// New creates an engine over src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the engine's scoring policy.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Search returns every command matching keyword, best first.
// No match is an empty result, not an error; the only error is an unreadable source.
func (e *Engine) Search(keyword string) ([]Result, error) {
	entries, err := e.src.ListAll()
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		score, match, ok := e.weights.Score(keyword, entry)
		if !ok {
			continue
		}
		results = appendResult(results, entry, score, match)
	}
	sortResults(results)
	return results, nil
}

// Suggest returns up to limit commands close to input, best first. It scores
// like Search, then lets weaker fuzzy matches in at half weight so near misses
// still rank. limit <= 0 returns every candidate.
func (e *Engine) Suggest(input string, limit int) ([]Result, error) {
	entries, err := e.src.ListAll()
	if err != nil {
		return nil, err
	}
	kw := normalize(input)
	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		score, match, ok := e.weights.Score(kw, entry)
		if !ok {
			ratio := FuzzyRatio(normalize(entry.Name()), kw)
			if ratio <= 0 {
				continue
			}
			score, match = ratio*e.weights.Fuzzy/2, MatchFuzzy
		}
		results = appendResult(results, entry, score, match)
	}
	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Names returns the command names of results in order.
func Names(results []Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return names
}

// appendResult drops unusable scores so the comparator only sees finite,
// positive values, and clamps to MaxScore.
func appendResult(results []Result, entry *registry.Entry, score float64, match MatchType) []Result {
	if !usable(score) {
		return results
	}
	return append(results, Result{
		Entry:     entry,
		Name:      entry.Name(),
		About:     entry.Meta.Description,
		Score:     math.Min(score, MaxScore),
		MatchType: match,
	})
}

// sortResults orders by score descending, then name ascending.
func sortResults(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
