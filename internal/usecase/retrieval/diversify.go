package retrieval

import (
	"log/slog"

	"retrieval-pipeline/internal/domain"
)

// Diversify caps results per source document in a single pass over the
// Stage-1 ranked list. The first-seen candidates per document are kept,
// so the highest-scoring candidate of every document survives, and the
// relative order of kept candidates is preserved.
//
// maxPerDocument <= 0 disables the cap.
func Diversify(
	sc *StageContext,
	maxPerDocument int,
	logger *slog.Logger,
) {
	if maxPerDocument <= 0 {
		sc.Diversified = append([]domain.Candidate(nil), sc.Candidates...)
		return
	}

	perDocument := make(map[string]int)
	kept := make([]domain.Candidate, 0, len(sc.Candidates))
	for _, c := range sc.Candidates {
		if perDocument[c.DocumentID] >= maxPerDocument {
			continue
		}
		perDocument[c.DocumentID]++
		kept = append(kept, c)
	}
	sc.Diversified = kept

	logger.Info("diversification_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("max_per_document", maxPerDocument),
		slog.Int("candidates_in", len(sc.Candidates)),
		slog.Int("candidates_out", len(kept)),
		slog.Int("distinct_documents", len(perDocument)))
}
