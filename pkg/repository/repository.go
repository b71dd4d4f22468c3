package repository

import (
	"context"

	"github.com/boralio/leadbot/pkg/model"
)

// Repository defines the interface for knowledge corpus search and lead persistence
type Repository interface {
	// PutKnowledge saves a knowledge record with its embedding vector
	PutKnowledge(ctx context.Context, record *model.KnowledgeRecord) error

	// SearchKnowledge performs vector search and returns up to limit records
	// ordered by descending cosine similarity
	SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredKnowledge, error)

	// UpsertLead writes a lead keyed by its session ID. On conflict all
	// attribute fields, the score and the serialized conversation are
	// overwritten. The returned bool reports whether the write was a fresh
	// insert rather than an update.
	UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error)

	// GetLead retrieves a lead by session ID
	GetLead(ctx context.Context, sessionID model.SessionID) (*model.Lead, error)

	// ListLeads retrieves persisted leads ordered by most recent update
	ListLeads(ctx context.Context, offset, limit int) ([]*model.Lead, error)

	// Close releases underlying connections
	Close() error
}
