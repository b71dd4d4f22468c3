package conversation

import (
	"context"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// ChatInput is one user turn handed in by the caller, together with the
// caller-owned prior history.
type ChatInput struct {
	SessionID model.SessionID
	Message   string
	History   []model.ConversationTurn
}

// ChatOutput carries the reply and the updated history back to the caller,
// plus the qualification state derived this turn.
type ChatOutput struct {
	Reply      string
	History    []model.ConversationTurn
	Sources    []*model.ScoredKnowledge
	Attributes model.LeadAttributes
	Score      int
	Qualified  bool

	// Lead is set only when this turn persisted the lead
	Lead *model.Lead
}

// Chat runs one conversational turn. Retrieval and extraction failures
// degrade silently; the only hard failure is reply generation, since no
// reply can be produced without it.
func (u *UseCase) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	logger := logging.From(ctx).With("session_id", input.SessionID)
	ctx = logging.With(ctx, logger)

	sources := u.retrieveContext(ctx, input.Message)

	// Extraction sees the new user message before it is appended to history
	pending := append(append([]model.ConversationTurn{}, input.History...), model.ConversationTurn{
		Role:    model.RoleUser,
		Content: input.Message,
	})
	attrs := u.extractAttributes(ctx, pending)
	score := Score(attrs)

	reply, history, err := u.composeReply(ctx, input.Message, input.History, sources, attrs)
	if err != nil {
		return nil, err
	}

	out := &ChatOutput{
		Reply:      reply,
		History:    history,
		Sources:    sources,
		Attributes: attrs,
		Score:      score,
		Qualified:  score >= u.qualifyThreshold && attrs.Email != nil,
	}

	out.Lead = u.maybePersistLead(ctx, attrs, score, history, input.SessionID)

	return out, nil
}
