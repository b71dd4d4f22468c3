package model

import "github.com/google/uuid"

type KnowledgeID string

// NewKnowledgeID generates a new unique KnowledgeID
func NewKnowledgeID() KnowledgeID {
	return KnowledgeID(uuid.New().String())
}

// KnowledgeRecord is a single document in the knowledge corpus. Records are
// created by the ingestion pipeline and read-only to the chat pipeline.
type KnowledgeRecord struct {
	ID        KnowledgeID
	Title     string
	Content   string
	Excerpt   string
	URL       string
	Metadata  map[string]string
	Embedding []float32
}

// ScoredKnowledge is a knowledge record ranked by cosine similarity to a
// query embedding. Similarity is in [-1, 1], higher is closer.
type ScoredKnowledge struct {
	Record     *KnowledgeRecord
	Similarity float64
}
