package conversation_test

import (
	"context"
	"errors"
	"sync"

	"google.golang.org/genai"

	"github.com/boralio/leadbot/pkg/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

// mockGemini answers extraction calls (structured output requested) with
// extractJSON and reply calls with replyText. It records the last system
// instruction handed to the reply call.
type mockGemini struct {
	extractJSON string
	extractErr  error
	replyText   string
	replyErr    error

	embedding []float32
	embedErr  error

	lastDirective string
	replyContents []*genai.Content
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if config != nil && config.ResponseMIMEType == "application/json" {
		if m.extractErr != nil {
			return nil, m.extractErr
		}
		return textResponse(m.extractJSON), nil
	}

	if config != nil && config.SystemInstruction != nil && len(config.SystemInstruction.Parts) > 0 {
		m.lastDirective = config.SystemInstruction.Parts[0].Text
	}
	m.replyContents = contents

	if m.replyErr != nil {
		return nil, m.replyErr
	}
	return textResponse(m.replyText), nil
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// memoryRepo is a map-backed Repository for tests. Upsert reports a fresh
// insert exactly when the session key is new.
type memoryRepo struct {
	mu        sync.Mutex
	knowledge []*model.ScoredKnowledge
	leads     map[model.SessionID]*model.Lead

	searchErr error
	upsertErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{leads: map[model.SessionID]*model.Lead{}}
}

func (r *memoryRepo) PutKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knowledge = append(r.knowledge, &model.ScoredKnowledge{Record: record, Similarity: 1})
	return nil
}

func (r *memoryRepo) SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredKnowledge, error) {
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.knowledge) > limit {
		return r.knowledge[:limit], nil
	}
	return r.knowledge, nil
}

func (r *memoryRepo) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	if r.upsertErr != nil {
		return nil, false, r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.leads[lead.SessionID]
	stored := *lead
	r.leads[lead.SessionID] = &stored
	return &stored, !exists, nil
}

func (r *memoryRepo) GetLead(ctx context.Context, sessionID model.SessionID) (*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[sessionID]
	if !ok {
		return nil, errors.New("lead not found")
	}
	return lead, nil
}

func (r *memoryRepo) ListLeads(ctx context.Context, offset, limit int) ([]*model.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var leads []*model.Lead
	for _, lead := range r.leads {
		leads = append(leads, lead)
	}
	return leads, nil
}

func (r *memoryRepo) Close() error { return nil }

// mockNotifier counts deliveries
type mockNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	sendErr error
}

type sentNotification struct {
	recipient string
	subject   string
	body      string
}

func (n *mockNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{recipient: recipient, subject: subject, body: body})
	return nil
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
