package conversation

import (
	"time"

	"github.com/boralio/leadbot/pkg/adapter"
	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/workflow"
)

const (
	// DefaultQualifyThreshold is the score at which a lead with a contact
	// address is persisted and the sales team is notified.
	DefaultQualifyThreshold = 60

	// DefaultRetrieveLimit is how many knowledge records back a reply.
	DefaultRetrieveLimit = 3

	// defaultCallTimeout bounds every external call within a turn. On
	// timeout, retrieval degrades to empty, extraction degrades to the
	// deterministic pass, and persistence simply waits for the next
	// qualifying turn.
	defaultCallTimeout = 30 * time.Second
)

// UseCase runs one conversational turn: context retrieval, attribute
// extraction, qualification scoring, reply composition and lead persistence.
// It holds no cross-turn state; the caller owns the conversation history and
// must serialize turns per session.
type UseCase struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	notifier adapter.Notifier
	archiver adapter.Archiver
	router   *workflow.Engine

	recipient        string
	qualifyThreshold int
	retrieveLimit    int
	callTimeout      time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithNotifier enables lead notifications to the given default recipient
func WithNotifier(n adapter.Notifier, recipient string) Option {
	return func(u *UseCase) {
		u.notifier = n
		u.recipient = recipient
	}
}

// WithArchiver enables transcript archival on fresh lead inserts
func WithArchiver(a adapter.Archiver) Option {
	return func(u *UseCase) {
		u.archiver = a
	}
}

// WithRouter enables policy-driven notification routing
func WithRouter(e *workflow.Engine) Option {
	return func(u *UseCase) {
		u.router = e
	}
}

// WithQualifyThreshold overrides the qualification score threshold
func WithQualifyThreshold(threshold int) Option {
	return func(u *UseCase) {
		u.qualifyThreshold = threshold
	}
}

// WithRetrieveLimit overrides how many knowledge records are retrieved per turn
func WithRetrieveLimit(limit int) Option {
	return func(u *UseCase) {
		u.retrieveLimit = limit
	}
}

// WithCallTimeout overrides the per-call timeout for external calls
func WithCallTimeout(d time.Duration) Option {
	return func(u *UseCase) {
		u.callTimeout = d
	}
}

// New creates a new conversation UseCase
func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	u := &UseCase{
		repo:             repo,
		gemini:           gemini,
		qualifyThreshold: DefaultQualifyThreshold,
		retrieveLimit:    DefaultRetrieveLimit,
		callTimeout:      defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}
