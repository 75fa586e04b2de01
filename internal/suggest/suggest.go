// Package suggest proposes a one-to-one assignment of target fields to
// leaf paths of a JSON document.
package suggest

import (
	"sort"

	"github.com/ziadkadry99/ocrstudio/internal/fields"
	"github.com/ziadkadry99/ocrstudio/internal/jsonpath"
	"github.com/ziadkadry99/ocrstudio/internal/match"
)

// Threshold is the minimum score a field/path pair needs to be considered.
const Threshold = 0.45

// Suggestion is a field/path pair with its score.
type Suggestion struct {
	FieldID string  `json:"fieldId"`
	Path    string  `json:"jsonPath"`
	Score   float64 `json:"score"`
}

// Suggest returns fieldID -> path for every field that could be matched.
// No path is assigned to more than one field.
func Suggest(list []fields.Field, raw []byte) (map[string]string, error) {
	ranked, err := Rank(list, raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ranked))
	for _, s := range ranked {
		out[s.FieldID] = s.Path
	}
	return out, nil
}

// Rank returns the committed suggestions in the order they were assigned,
// best first.
func Rank(list []fields.Field, raw []byte) ([]Suggestion, error) {
	paths, err := jsonpath.Extract(raw)
	if err != nil {
		return nil, err
	}
	return Assign(list, paths), nil
}

// Candidates scores every field/path pair and returns those at or above
// Threshold, best first. Equal scores keep field order, then path order.
func Candidates(list []fields.Field, paths []string) []Suggestion {
	var all []Suggestion
	for _, f := range list {
		if jsonpath.IsEmpty(f.ID) {
			continue
		}
		for _, p := range paths {
			score := max(match.Score(f.ID, p), match.Score(f.DisplayName, p))
			if score >= Threshold {
				all = append(all, Suggestion{FieldID: f.ID, Path: p, Score: score})
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	return all
}

// Assign greedily commits candidates so each field and each path is used
// at most once.
func Assign(list []fields.Field, paths []string) []Suggestion {
	var (
		committed  = []Suggestion{}
		usedFields = make(map[string]bool)
		usedPaths  = make(map[string]bool)
	)

	for _, c := range Candidates(list, paths) {
		if usedFields[c.FieldID] || usedPaths[c.Path] {
			continue
		}
		usedFields[c.FieldID] = true
		usedPaths[c.Path] = true
		committed = append(committed, c)
	}
	return committed
}
