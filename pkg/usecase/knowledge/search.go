package knowledge

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/boralio/leadbot/pkg/model"
)

// Search embeds the query and returns the nearest knowledge records. Unlike
// the conversational retrieval path this is a direct operation, so failures
// surface as errors.
func (u *UseCase) Search(ctx context.Context, query string, limit int) ([]*model.ScoredKnowledge, error) {
	if query == "" {
		return nil, goerr.New("query must not be empty")
	}
	if limit <= 0 {
		limit = 3
	}

	ectx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()
	embedding, err := u.gemini.Embedding(ectx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}

	sctx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()
	results, err := u.repo.SearchKnowledge(sctx, embedding, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search knowledge base")
	}

	return results, nil
}
