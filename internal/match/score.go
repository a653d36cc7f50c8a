// Package match scores catalog candidates against a roster artist name.
// Scoring is pure and deterministic: all rules are additive bonuses, so the
// final score does not depend on rule order, only the reasons list does.
package match

import (
	"sort"
	"strings"

	"github.com/backlinefm/backline/internal/catalog"
)

// Confidence buckets a raw score into a tier that gates whether a match is
// applied automatically.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Score thresholds for the confidence tiers.
const (
	highThreshold   = 90
	mediumThreshold = 60
)

// Rule weights. An exact match co-occurring with the normalized and partial
// rules can push a score well past 100; that headroom is intentional, the
// tier is thresholded rather than the raw score capped.
const (
	exactMatchScore      = 100
	normalizedMatchScore = 90
	partialMatchScore    = 60
	genreBonus           = 20
	highPopularityBonus  = 10
	midPopularityBonus   = 5
	imageBonus           = 5
)

// relevantGenres is the label's genre vocabulary; any candidate genre tag
// containing one of these earns the genre bonus.
var relevantGenres = []string{
	"house",
	"deep house",
	"afro house",
	"electronic",
	"dance",
	"techno",
}

// Score is one scored candidate with the rule hits that produced it.
type Score struct {
	Candidate catalog.Candidate `json:"candidate"`
	Value     int               `json:"score"`
	Reasons   []string          `json:"reasons"`
}

// Result is the outcome of evaluating all candidates for a query name.
type Result struct {
	Best         *Score              `json:"best,omitempty"`
	Alternatives []catalog.Candidate `json:"alternatives,omitempty"`
	Confidence   Confidence          `json:"confidence"`
	Value        int                 `json:"score"`
	Reasons      []string            `json:"reasons"`
}

// ScoreCandidate computes the additive match score of one candidate
// against the query name.
func ScoreCandidate(query string, cand catalog.Candidate) Score {
	var reasons []string
	score := 0

	cleanQuery := strings.ToLower(strings.TrimSpace(query))
	cleanName := strings.ToLower(strings.TrimSpace(cand.Name))

	if cleanName == cleanQuery {
		score += exactMatchScore
		reasons = append(reasons, "Exact name match")
	}

	if normalize(cleanName) == normalize(cleanQuery) {
		score += normalizedMatchScore
		reasons = append(reasons, "Normalized name match")
	}

	if strings.Contains(cleanName, cleanQuery) || strings.Contains(cleanQuery, cleanName) {
		score += partialMatchScore
		reasons = append(reasons, "Partial name match")
	}

	if hasRelevantGenre(cand.Genres) {
		score += genreBonus
		reasons = append(reasons, "Relevant genre")
	}

	if cand.Popularity > 50 {
		score += highPopularityBonus
		reasons = append(reasons, "High popularity")
	} else if cand.Popularity > 20 {
		score += midPopularityBonus
		reasons = append(reasons, "Medium popularity")
	}

	if len(cand.Images) > 0 {
		score += imageBonus
		reasons = append(reasons, "Has profile image")
	}

	return Score{Candidate: cand, Value: score, Reasons: reasons}
}

// Evaluate scores every candidate and returns the best match with up to
// three alternatives for manual review. Ties keep discovery order.
func Evaluate(query string, candidates []catalog.Candidate) Result {
	if len(candidates) == 0 {
		return Result{
			Confidence: ConfidenceLow,
			Reasons:    []string{"No results found"},
		}
	}

	scored := make([]Score, len(candidates))
	for i, cand := range candidates {
		scored[i] = ScoreCandidate(query, cand)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Value > scored[j].Value
	})

	best := scored[0]
	var alternatives []catalog.Candidate
	for _, s := range scored[1:] {
		alternatives = append(alternatives, s.Candidate)
		if len(alternatives) == 3 {
			break
		}
	}

	return Result{
		Best:         &best,
		Alternatives: alternatives,
		Confidence:   Tier(best.Value),
		Value:        best.Value,
		Reasons:      best.Reasons,
	}
}

// Tier maps a raw score to its confidence tier.
func Tier(score int) Confidence {
	switch {
	case score >= highThreshold:
		return ConfidenceHigh
	case score >= mediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// normalize strips spaces, hyphens, underscores and periods.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		return r
	}, s)
}

// hasRelevantGenre reports whether any genre tag contains one of the
// label's relevant genres, case-insensitively.
func hasRelevantGenre(genres []string) bool {
	for _, g := range genres {
		lower := strings.ToLower(g)
		for _, relevant := range relevantGenres {
			if strings.Contains(lower, relevant) {
				return true
			}
		}
	}
	return false
}
