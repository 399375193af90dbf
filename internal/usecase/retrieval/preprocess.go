package retrieval

import (
	"regexp"
	"strings"
	"unicode"

	"retrieval-pipeline/internal/domain"
)

// PreprocessOptions controls the query preprocessing steps.
type PreprocessOptions struct {
	EnableSpellCorrection    bool
	EnableSynonymExpansion   bool
	EnableQueryReformulation bool
	MaxSynonyms              int
	PreserveEntities         bool
}

// DefaultPreprocessOptions enables every step with a conservative
// synonym budget.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		EnableSpellCorrection:    true,
		EnableSynonymExpansion:   true,
		EnableQueryReformulation: true,
		MaxSynonyms:              2,
		PreserveEntities:         true,
	}
}

// Preprocess normalizes, corrects, reformulates, and classifies a raw
// query. The result is immutable; running it twice on the same input
// and options yields identical output.
func Preprocess(raw string, opts PreprocessOptions) (domain.PreprocessedQuery, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.PreprocessedQuery{}, domain.NewValidationError("query is empty")
	}

	normalized := normalizeText(raw)
	if normalized == "" {
		return domain.PreprocessedQuery{}, domain.NewValidationError("query contains no searchable text")
	}

	var entities []string
	if opts.PreserveEntities {
		entities = extractEntities(raw)
	}

	corrected := normalized
	if opts.EnableSpellCorrection {
		corrected = correctSpelling(normalized)
	}

	variants := []string{corrected}
	if opts.EnableQueryReformulation {
		variants = reformulate(corrected)
	}
	if opts.EnableSynonymExpansion {
		variants = expandSynonyms(variants, opts.MaxSynonyms)
	}

	intent := classifyIntent(corrected)

	return domain.PreprocessedQuery{
		Original:   raw,
		Normalized: normalized,
		Corrected:  corrected,
		Variants:   variants,
		Entities:   entities,
		Intent:     intent,
		Confidence: scoreConfidence(raw, entities, intent),
	}, nil
}

// normalizeText lowercases, strips punctuation, and collapses whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// extractEntities pulls capitalized, all-caps, and purely numeric tokens
// from the raw query. This is a heuristic, not NER.
func extractEntities(raw string) []string {
	seen := make(map[string]bool)
	var entities []string
	for _, token := range strings.Fields(raw) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token == "" || seen[token] {
			continue
		}
		if isCapitalized(token) || isAllCaps(token) || isNumeric(token) {
			entities = append(entities, token)
			seen[token] = true
		}
	}
	return entities
}

func isCapitalized(s string) bool {
	runes := []rune(s)
	if len(runes) < 2 {
		return false
	}
	return unicode.IsUpper(runes[0]) && unicode.IsLower(runes[1])
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter && len(s) > 1
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// maxCorrectionDistance bounds how far a token may drift from a
// vocabulary word before correction is skipped.
const maxCorrectionDistance = 2

// correctSpelling replaces out-of-vocabulary tokens with the closest
// vocabulary word at edit distance <= 2. Ties keep the first minimal
// match in vocabulary order.
func correctSpelling(normalized string) string {
	tokens := strings.Fields(normalized)
	for i, token := range tokens {
		if vocabularySet[token] {
			continue
		}
		best := ""
		bestDist := maxCorrectionDistance + 1
		for _, word := range vocabulary {
			if d := EditDistance(token, word); d < bestDist {
				best = word
				bestDist = d
			}
		}
		if bestDist <= maxCorrectionDistance {
			tokens[i] = best
		}
	}
	return strings.Join(tokens, " ")
}

// EditDistance computes the classic dynamic-programming Levenshtein
// distance between two strings.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

type rewriteRule struct {
	pattern *regexp.Regexp
	replace string
}

// Question-pattern rewrites applied to the normalized query. Patterns
// run against punctuation-free text.
var rewriteRules = []rewriteRule{
	{regexp.MustCompile(`^what is (?:a |an |the )?(.+)$`), "$1"},
	{regexp.MustCompile(`^what are (?:the )?(.+)$`), "$1"},
	{regexp.MustCompile(`^how (?:do|does|can) (?:i |you |we )?(.+)$`), "$1"},
	{regexp.MustCompile(`^how to (.+)$`), "$1"},
	{regexp.MustCompile(`^why (?:is|are|do|does) (.+)$`), "$1 reason"},
	{regexp.MustCompile(`^who (?:is|was) (.+)$`), "$1"},
	{regexp.MustCompile(`^where (?:is|are|can) (.+)$`), "$1 location"},
	{regexp.MustCompile(`^when (?:is|was|did|does) (.+)$`), "$1 date"},
	{regexp.MustCompile(`^(?:tell me about|explain|describe) (.+)$`), "$1"},
}

// reformulate produces deduplicated query variants, always including the
// corrected query itself.
func reformulate(corrected string) []string {
	variants := []string{corrected}
	seen := map[string]bool{corrected: true}
	for _, rule := range rewriteRules {
		if !rule.pattern.MatchString(corrected) {
			continue
		}
		rewritten := rule.pattern.ReplaceAllString(corrected, rule.replace)
		rewritten = strings.TrimSpace(rewritten)
		if rewritten != "" && !seen[rewritten] {
			variants = append(variants, rewritten)
			seen[rewritten] = true
		}
	}
	return variants
}

// expandSynonyms substitutes single tokens with up to maxSynonyms
// synonyms per token, domain map first, then the generic fallback.
// Each substitution yields one new variant; no cross-product is taken.
func expandSynonyms(variants []string, maxSynonyms int) []string {
	if maxSynonyms <= 0 {
		return variants
	}

	out := make([]string, len(variants))
	copy(out, variants)
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		seen[v] = true
	}

	for _, variant := range variants {
		tokens := strings.Fields(variant)
		for i, token := range tokens {
			for _, syn := range synonymsFor(token, maxSynonyms) {
				substituted := make([]string, len(tokens))
				copy(substituted, tokens)
				substituted[i] = syn
				candidate := strings.Join(substituted, " ")
				if !seen[candidate] {
					out = append(out, candidate)
					seen[candidate] = true
				}
			}
		}
	}
	return out
}

func synonymsFor(token string, limit int) []string {
	var syns []string
	syns = append(syns, domainSynonyms[token]...)
	syns = append(syns, genericSynonyms[token]...)
	if len(syns) > limit {
		syns = syns[:limit]
	}
	return syns
}

// classifyIntent applies prefix and keyword rules to the corrected query.
func classifyIntent(corrected string) domain.QueryIntent {
	q := " " + corrected + " "
	switch {
	case hasPrefix(corrected, "what is", "what are", "define", "meaning of"):
		return domain.IntentDefinitional
	case hasPrefix(corrected, "how to", "how do", "how does", "how can") ||
		strings.Contains(q, " steps "):
		return domain.IntentProcedural
	case hasPrefix(corrected, "why") ||
		strings.Contains(q, " because ") || strings.Contains(q, " cause "):
		return domain.IntentCausal
	case strings.Contains(q, " vs ") || strings.Contains(q, " versus ") ||
		strings.Contains(q, " compare ") || strings.Contains(q, " difference between "):
		return domain.IntentComparative
	case hasPrefix(corrected, "when") ||
		strings.Contains(q, " timeline ") || strings.Contains(q, " history "):
		return domain.IntentTemporal
	case hasPrefix(corrected, "where") || strings.Contains(q, " location "):
		return domain.IntentSpatial
	case hasPrefix(corrected, "who is", "who was", "who"):
		return domain.IntentEntity
	default:
		return domain.IntentFactual
	}
}

func hasPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if s == p || strings.HasPrefix(s, p+" ") {
			return true
		}
	}
	return false
}

// scoreConfidence starts at 0.5 and adds fixed bonuses for query length,
// extracted entities, and high-signal intents, capped at 1.0.
func scoreConfidence(raw string, entities []string, intent domain.QueryIntent) float64 {
	confidence := 0.5
	if len(raw) > 10 {
		confidence += 0.1
	}
	if len(raw) > 20 {
		confidence += 0.1
	}
	if len(entities) > 0 {
		confidence += 0.1
	}
	switch intent {
	case domain.IntentDefinitional, domain.IntentProcedural, domain.IntentComparative:
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
