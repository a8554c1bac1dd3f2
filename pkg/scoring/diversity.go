package scoring

import (
	"sort"
	"strings"
)

// DefaultDiversityThreshold is the Jaccard similarity above which two
// clips are considered duplicates.
const DefaultDiversityThreshold = 0.7

// ScoredKeywords identifies one clip entering the diversity filter.
type ScoredKeywords struct {
	ClipID   string
	Score    float64
	Keywords []string
}

// Jaccard calculates the Jaccard similarity between two keyword sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union < 1 {
		union = 1
	}
	return float64(intersection) / float64(union)
}

// DiversityFilter keeps the higher-scored clip whenever two clips'
// keyword sets exceed the similarity threshold. Returns kept clip ids,
// highest score first.
func DiversityFilter(items []ScoredKeywords, threshold float64) []string {
	sorted := make([]ScoredKeywords, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	type keptEntry struct {
		id       string
		keywords map[string]struct{}
	}
	var kept []keptEntry

	for _, item := range sorted {
		kwset := make(map[string]struct{}, len(item.Keywords))
		for _, k := range item.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kwset[k] = struct{}{}
			}
		}

		diverse := true
		for _, existing := range kept {
			if Jaccard(kwset, existing.keywords) >= threshold {
				diverse = false
				break
			}
		}
		if diverse {
			kept = append(kept, keptEntry{id: item.ClipID, keywords: kwset})
		}
	}

	ids := make([]string, len(kept))
	for i, k := range kept {
		ids[i] = k.id
	}
	return ids
}
