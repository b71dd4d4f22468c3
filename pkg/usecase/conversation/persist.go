package conversation

import (
	"context"
	"encoding/json"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// maybePersistLead upserts the lead when the qualification gate passes and
// notifies exactly on the first insert for a session. Store failures skip
// this turn's save; the next qualifying turn recomputes everything from full
// history and retries naturally. Returns the persisted lead, or nil when the
// gate did not pass or the write failed.
func (u *UseCase) maybePersistLead(
	ctx context.Context,
	attrs model.LeadAttributes,
	score int,
	history []model.ConversationTurn,
	sessionID model.SessionID,
) *model.Lead {
	if score < u.qualifyThreshold || attrs.Email == nil {
		return nil
	}

	logger := logging.From(ctx)

	lead := &model.Lead{
		SessionID:    sessionID,
		Attributes:   attrs,
		Score:        score,
		Conversation: history,
	}

	pctx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	stored, inserted, err := u.repo.UpsertLead(pctx, lead)
	if err != nil {
		logger.Warn("failed to persist qualified lead", "error", err, "score", score)
		return nil
	}

	if !inserted {
		logger.Info("qualified lead updated", "score", score)
		return stored
	}

	logger.Info("new qualified lead", "score", score, "email", *attrs.Email)

	// Both side effects are best-effort and fire only on the fresh insert
	u.notify(ctx, stored)
	u.archive(ctx, stored)

	return stored
}

// notify sends the lead notification, applying the routing policy when one
// is configured. Failures are logged and swallowed; the persisted write is
// never rolled back.
func (u *UseCase) notify(ctx context.Context, lead *model.Lead) {
	if u.notifier == nil {
		return
	}

	logger := logging.From(ctx)

	recipients := []string{u.recipient}
	decision, err := u.router.EvalRouting(ctx, lead)
	if err != nil {
		logger.Warn("routing policy failed, using default recipient", "error", err)
	} else {
		if decision.Suppress {
			logger.Info("notification suppressed by routing policy")
			return
		}
		if len(decision.Recipients) > 0 {
			recipients = decision.Recipients
		}
	}

	subject := notificationSubject(lead)
	body := notificationBody(lead)

	for _, recipient := range recipients {
		nctx, cancel := context.WithTimeout(ctx, u.callTimeout)
		if err := u.notifier.Send(nctx, recipient, subject, body); err != nil {
			logger.Warn("failed to send lead notification", "error", err, "recipient", recipient)
		}
		cancel()
	}
}

// archive stores the serialized lead for later review
func (u *UseCase) archive(ctx context.Context, lead *model.Lead) {
	if u.archiver == nil {
		return
	}

	logger := logging.From(ctx)

	data, err := json.MarshalIndent(lead, "", "  ")
	if err != nil {
		logger.Warn("failed to serialize lead for archive", "error", err)
		return
	}

	actx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	key := "leads/" + string(lead.SessionID) + ".json"
	if err := u.archiver.Archive(actx, key, data); err != nil {
		logger.Warn("failed to archive lead transcript", "error", err, "key", key)
	}
}
