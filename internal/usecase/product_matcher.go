package usecase

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/listinglens/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

const (
	defaultMinMatchScore     = 60.0
	defaultFuzzyEditDistance = 1
	fuzzyWeightFactor        = 0.8 // Fuzzy matches get 80% of normal weight
)

// Scoring bonuses
const (
	brandMatchBonus     = 15.0 // Same brand on both sides
	substringMatchBonus = 10.0 // One product text contains the other
)

// matchStopWords are dropped before comparing product texts
var matchStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "to": true, "for": true,
	"with": true, "by": true, "from": true,
	// Resale noise
	"new": true, "used": true, "brand": true, "genuine": true, "authentic": true,
	"original": true, "condition": true, "excellent": true, "great": true,
	"works": true, "working": true, "unknown": true,
}

// MatcherConfig holds configuration for similarity matching
type MatcherConfig struct {
	MinScore          float64
	FuzzyEditDistance int
}

// ProductMatcher finds the cached product most similar to an analysis when
// no UPC, EAN or brand:model key matches exactly.
type ProductMatcher struct {
	minScore          float64
	fuzzyEditDistance int
}

// NewProductMatcher creates a matcher with the given configuration
func NewProductMatcher(config MatcherConfig) *ProductMatcher {
	minScore := config.MinScore
	if minScore <= 0 {
		minScore = defaultMinMatchScore
	}

	editDistance := config.FuzzyEditDistance
	if editDistance <= 0 {
		editDistance = defaultFuzzyEditDistance
	}

	return &ProductMatcher{
		minScore:          minScore,
		fuzzyEditDistance: editDistance,
	}
}

// FindBestMatch scores every entry against the analysis and returns the best
// one. A nil match means no entry reached the minimum score.
func (m *ProductMatcher) FindBestMatch(
	ctx context.Context,
	analysis *domain.ProductAnalysis,
	entries []domain.ProductDatabaseEntry,
) (*domain.DatabaseMatch, error) {
	brand := ""
	if analysis.HasBrand() {
		brand = analysis.Brand.Name
	}
	query := productText(brand, analysis.Attributes.Model, analysis.ProductType)
	if len(tokenize(query)) == 0 {
		return nil, nil
	}

	var best *domain.DatabaseMatch
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := productText(entry.Brand, entry.Model, entry.ProductType)
		score, matched := m.score(query, brand, text, entry.Brand)
		if best == nil || score > best.Score {
			best = &domain.DatabaseMatch{
				Entry:         entry,
				MatchedBy:     domain.MatchSimilar,
				Key:           entry.ID,
				Score:         math.Round(score*10) / 10,
				MatchedTokens: matched,
			}
		}
	}

	if best == nil || best.Score < m.minScore {
		return nil, nil
	}
	return best, nil
}

// productText joins the identifying fields of a product, skipping blanks
func productText(brand, model, productType string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{brand, model, productType} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// score computes similarity between two product texts.
// Uses a weighted combination of:
//   - Query token coverage: what % of the analysis tokens appear in the entry (most important)
//   - Entry token coverage: what % of the entry tokens appear in the analysis
//   - Jaccard similarity of the exact token sets
//   - Brand and substring bonuses
//
// Returns the score (0-100) and the list of matched tokens.
func (m *ProductMatcher) score(query, queryBrand, entryText, entryBrand string) (float64, []string) {
	queryTokens := tokenize(query)
	entryTokens := tokenize(entryText)

	if len(queryTokens) == 0 || len(entryTokens) == 0 {
		return 0, nil
	}

	// Query coverage counts near misses ("aple" vs "apple") at reduced weight
	weighted, matchedTokens := m.weightedIntersection(queryTokens, entryTokens)
	queryCoverage := weighted / float64(len(queryTokens))

	entryMatched, _ := findIntersection(entryTokens, queryTokens)
	entryCoverage := float64(entryMatched) / float64(len(entryTokens))

	exactMatched, _ := findIntersection(queryTokens, entryTokens)
	jaccard := float64(exactMatched) / float64(findUnion(queryTokens, entryTokens))

	score := (queryCoverage*0.60 + entryCoverage*0.20 + jaccard*0.20) * 100

	if queryBrand != "" && strings.EqualFold(strings.TrimSpace(queryBrand), strings.TrimSpace(entryBrand)) {
		score += brandMatchBonus
	}

	queryLower := strings.ToLower(query)
	entryLower := strings.ToLower(entryText)
	if len(queryLower) > 3 && queryLower != entryLower &&
		(strings.Contains(entryLower, queryLower) || strings.Contains(queryLower, entryLower)) {
		score += substringMatchBonus
	}

	// Cap score at 100
	if score > 100 {
		score = 100
	}

	return score, matchedTokens
}

// weightedIntersection sums exact matches at full weight and fuzzy matches at
// fuzzyWeightFactor.
func (m *ProductMatcher) weightedIntersection(queryTokens, entryTokens []string) (float64, []string) {
	entrySet := make(map[string]bool, len(entryTokens))
	for _, t := range entryTokens {
		entrySet[t] = true
	}

	var (
		total   float64
		matched []string
	)
	for _, q := range queryTokens {
		if entrySet[q] {
			total++
			matched = append(matched, q)
			continue
		}
		for _, e := range entryTokens {
			if fuzzyTokenMatch(q, e, m.fuzzyEditDistance) {
				total += fuzzyWeightFactor
				matched = append(matched, e)
				break
			}
		}
	}
	return total, matched
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and single characters. Numbers are kept
// since they often carry the model ("iPhone 13").
func tokenize(s string) []string {
	// Remove punctuation and convert to lowercase
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || matchStopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}

	return tokens
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens of 4+ chars to avoid false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	// Quick length check - if lengths differ by more than threshold, can't match
	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
