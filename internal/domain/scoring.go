package domain

import (
	"math"
	"sort"
	"strings"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier title words are better)
	ScorePositionBonus = 10.0

	// Whole title equals the query
	ScoreExactTitleBonus = 200.0

	// Popularity weight (view counter contributes to final score)
	ScoreViewWeight = 0.1
)

// Candidate is a resource matched by a search query.
type Candidate struct {
	Resource     *ResourceMetadata
	LexicalScore float64
	ViewScore    float64
	TotalScore   float64
}

// Score calculates the lexical match score of a resource title against a query.
// Every query fragment must match some title word, otherwise the score is 0.
func Score(query *Query, meta *ResourceMetadata) float64 {
	if query == nil || meta == nil || len(query.Fragments) == 0 {
		return 0.0
	}

	titleWords := Tokenize(meta.Title)
	if len(titleWords) == 0 {
		return 0.0
	}

	if strings.Join(query.Fragments, "") == strings.Join(titleWords, "") {
		return ScoreExactMatch + ScoreExactTitleBonus
	}

	var total float64
	for _, qFrag := range query.Fragments {
		best := 0.0
		for i, word := range titleWords {
			if s := scoreFragment(qFrag, word, i); s > best {
				best = s
			}
		}
		if best == 0.0 {
			return 0.0
		}
		total += best
	}
	return total
}

// scoreFragment scores a single query fragment against a title word.
func scoreFragment(queryFrag, word string, position int) float64 {
	if queryFrag == "" || word == "" {
		return 0.0
	}

	if queryFrag == word {
		return ScoreExactMatch + calculatePositionBonus(position)
	}

	if strings.HasPrefix(word, queryFrag) {
		return ScorePrefixMatch + calculatePositionBonus(position)
	}

	if idx := strings.Index(word, queryFrag); idx >= 0 {
		substringBonus := ScorePositionBonus * (1.0 - float64(idx)/float64(len(word)))
		return ScoreSubstringMatch + substringBonus
	}

	similarity := calculateSimilarity(queryFrag, word)
	if similarity > 0.5 && len(queryFrag) >= 3 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// calculatePositionBonus gives bonus for earlier positions
func calculatePositionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// calculateSimilarity is the ratio of s1 runes that also appear in s2.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	matches, total := 0, 0
	for _, c := range s1 {
		total++
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}

	return float64(matches) / float64(total)
}

// RankCandidates scores every resource against the query and returns the
// matches, best first. Ties keep the input order.
func RankCandidates(query *Query, resources []*ResourceMetadata) []*Candidate {
	candidates := make([]*Candidate, 0, len(resources))

	for _, meta := range resources {
		lexical := Score(query, meta)
		if lexical == 0.0 {
			continue
		}

		// Logarithmic to prevent dominance
		viewScore := 0.0
		if meta.ViewCount > 0 {
			viewScore = math.Log10(float64(meta.ViewCount)+1) * ScoreViewWeight * 100
		}

		candidates = append(candidates, &Candidate{
			Resource:     meta,
			LexicalScore: lexical,
			ViewScore:    viewScore,
			TotalScore:   lexical + viewScore,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalScore > candidates[j].TotalScore
	})

	return candidates
}
