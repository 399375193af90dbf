package retrieval

// vocabulary is the known-word list used by spell correction, in match
// priority order. vocabularySet mirrors it for O(1) membership checks.
var vocabulary = []string{
	"what", "when", "where", "which", "who", "why", "how",
	"is", "are", "was", "were", "does", "do", "did", "can", "could",
	"the", "and", "for", "with", "about", "between", "into", "from",
	"machine", "learning", "deep", "neural", "network", "model", "training",
	"embedding", "vector", "semantic", "lexical", "retrieval", "ranking",
	"search", "query", "document", "index", "relevance", "score",
	"database", "storage", "cache", "pipeline", "algorithm", "system",
	"data", "analysis", "classification", "regression", "cluster",
	"language", "processing", "generation", "transformer", "attention",
	"gradient", "descent", "optimization", "inference", "accuracy",
	"precision", "recall", "evaluation", "benchmark", "performance",
	"difference", "compare", "explain", "define", "example", "tutorial",
	"error", "problem", "result", "method", "process", "function",
}

var vocabularySet = func() map[string]bool {
	set := make(map[string]bool, len(vocabulary))
	for _, w := range vocabulary {
		set[w] = true
	}
	return set
}()

// domainSynonyms maps retrieval/ML terms to close substitutes. Consulted
// before the generic fallback map.
var domainSynonyms = map[string][]string{
	"machine":   {"automated", "computational"},
	"learning":  {"training", "modeling"},
	"model":     {"network", "system"},
	"embedding": {"vector", "representation"},
	"semantic":  {"meaning", "conceptual"},
	"lexical":   {"keyword", "term"},
	"retrieval": {"search", "lookup"},
	"ranking":   {"ordering", "scoring"},
	"document":  {"text", "article"},
	"query":     {"question", "search"},
	"relevance": {"similarity", "match"},
	"accuracy":  {"precision", "correctness"},
	"neural":    {"deep", "artificial"},
	"inference": {"prediction", "scoring"},
}

// genericSynonyms is the fallback map for common words.
var genericSynonyms = map[string][]string{
	"big":     {"large", "huge"},
	"small":   {"tiny", "little"},
	"fast":    {"quick", "rapid"},
	"slow":    {"sluggish", "delayed"},
	"make":    {"create", "build"},
	"use":     {"apply", "employ"},
	"find":    {"locate", "discover"},
	"show":    {"display", "present"},
	"error":   {"failure", "fault"},
	"problem": {"issue", "difficulty"},
	"result":  {"outcome", "output"},
	"method":  {"approach", "technique"},
	"good":    {"effective", "strong"},
	"bad":     {"poor", "weak"},
	"new":     {"recent", "modern"},
	"best":    {"optimal", "top"},
}
