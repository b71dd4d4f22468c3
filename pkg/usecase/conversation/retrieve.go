package conversation

import (
	"context"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// retrieveContext embeds the query and returns the most similar knowledge
// records. Any failure degrades to an empty result set; the composer falls
// back to a fixed context string and the next user message is the natural
// retry.
func (u *UseCase) retrieveContext(ctx context.Context, query string) []*model.ScoredKnowledge {
	logger := logging.From(ctx)

	ectx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	embedding, err := u.gemini.Embedding(ectx, query)
	if err != nil {
		logger.Warn("failed to embed query, proceeding without context", "error", err)
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	results, err := u.repo.SearchKnowledge(sctx, embedding, u.retrieveLimit)
	if err != nil {
		logger.Warn("knowledge search failed, proceeding without context", "error", err)
		return nil
	}

	if len(results) > 0 {
		logger.Debug("retrieved knowledge records",
			"count", len(results),
			"top_similarity", results[0].Similarity)
	}

	return results
}
