package match

import "strings"

// Signal weights and floors.
const (
	ExactScore    = 1.0
	CombinedScore = 0.98

	synonymBase = 0.70
	stemBase    = 0.65
	overlapSpan = 0.25

	substringLeafScore     = 0.75
	substringCombinedScore = 0.70

	editThreshold      = 0.7
	editLeafWeight     = 0.9
	editCombinedWeight = 0.85

	fallbackCeiling = 0.5
	fallbackBase    = 0.40
	fallbackSpan    = 0.20
)

// Breakdown records the value of every signal that contributed to a score.
// Signals that did not fire are zero.
type Breakdown struct {
	Exact        float64 `json:"exact"`
	Combined     float64 `json:"combined"`
	Synonym      float64 `json:"synonym"`
	Stem         float64 `json:"stem"`
	Substring    float64 `json:"substring"`
	EditDistance float64 `json:"edit_distance"`
	TokenOverlap float64 `json:"token_overlap"`
	Score        float64 `json:"score"`
}

// Score returns the confidence in [0, 1] that field and the JSON path name
// the same concept. It never fails; unrelated inputs score 0.
func Score(field, path string) float64 {
	return Explain(field, path).Score
}

// Explain computes Score and reports the individual signals.
func Explain(field, path string) Breakdown {
	var b Breakdown

	normField := Normalize(field)
	fieldTokens := Tokenize(field)
	if normField == "" || len(fieldTokens) == 0 {
		return b
	}

	leaf, parent := lastSegments(path)
	normLeaf := Normalize(leaf)
	normParent := Normalize(parent)
	combined := normParent + normLeaf
	pathTokens := append(Tokenize(parent), Tokenize(leaf)...)

	if normLeaf != "" && normField == normLeaf {
		b.Exact = ExactScore
	}
	if normParent != "" && normField == combined {
		b.Combined = CombinedScore
	}

	if len(pathTokens) > 0 {
		denom := float64(max(len(fieldTokens), len(pathTokens)))

		pathSynonyms := expandAll(pathTokens)
		if n := countExpandedOverlap(fieldTokens, pathSynonyms); n > 0 {
			b.Synonym = synonymBase + overlapSpan*float64(n)/denom
		}

		pathStems := make(wordSet, len(pathTokens))
		for _, t := range pathTokens {
			pathStems[Stem(t)] = struct{}{}
		}
		if n := countStemOverlap(fieldTokens, pathStems); n > 0 {
			b.Stem = stemBase + overlapSpan*float64(n)/denom
		}
	}

	if normLeaf != "" && (strings.Contains(normField, normLeaf) || strings.Contains(normLeaf, normField)) {
		b.Substring = substringLeafScore
	}
	if normParent != "" && b.Substring == 0 &&
		(strings.Contains(normField, combined) || strings.Contains(combined, normField)) {
		b.Substring = substringCombinedScore
	}

	if normLeaf != "" {
		if sim := LevenshteinSimilarity(normField, normLeaf); sim > editThreshold {
			b.EditDistance = sim * editLeafWeight
		}
	}
	if normParent != "" {
		if sim := LevenshteinSimilarity(normField, combined); sim > editThreshold {
			b.EditDistance = max(b.EditDistance, sim*editCombinedWeight)
		}
	}

	score := max(b.Exact, b.Combined, b.Synonym, b.Stem, b.Substring, b.EditDistance)

	if score < fallbackCeiling {
		if n := countLooseOverlap(fieldTokens, pathTokens); n > 0 {
			b.TokenOverlap = fallbackBase + fallbackSpan*float64(n)/float64(len(fieldTokens))
			score = max(score, b.TokenOverlap)
		}
	}

	b.Score = clamp(score)
	return b
}

// lastSegments returns the leaf segment of a dotted path and its parent.
// The root marker "$" never counts as a parent.
func lastSegments(path string) (leaf, parent string) {
	segments := strings.Split(path, ".")
	leaf = segments[len(segments)-1]
	if len(segments) > 2 {
		parent = segments[len(segments)-2]
	}
	return leaf, parent
}

// countExpandedOverlap counts the field tokens whose expansion shares at
// least one word with the path's expanded vocabulary.
func countExpandedOverlap(fieldTokens []string, pathSynonyms wordSet) int {
	n := 0
	for _, t := range fieldTokens {
		for w := range expand(t) {
			if pathSynonyms.has(w) {
				n++
				break
			}
		}
	}
	return n
}

// countStemOverlap counts the field tokens whose stem appears among the
// path stems.
func countStemOverlap(fieldTokens []string, pathStems wordSet) int {
	n := 0
	for _, t := range fieldTokens {
		if pathStems.has(Stem(t)) {
			n++
		}
	}
	return n
}

// countLooseOverlap counts the field tokens that contain, or are contained
// in, any path token.
func countLooseOverlap(fieldTokens, pathTokens []string) int {
	n := 0
	for _, t := range fieldTokens {
		for _, p := range pathTokens {
			if strings.Contains(p, t) || strings.Contains(t, p) {
				n++
				break
			}
		}
	}
	return n
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
