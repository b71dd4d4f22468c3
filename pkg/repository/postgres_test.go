package repository_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/repository"
)

const testVectorDim = 8

func setupPostgres(t *testing.T) *repository.Postgres {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL must be set to run Postgres tests")
	}

	repo, err := repository.NewPostgres(dsn, repository.WithVectorDim(testVectorDim))
	gt.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	gt.NoError(t, repo.InitSchema(context.Background()))

	return repo
}

func randomEmbedding(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rand.Float32()
	}
	return vec
}

func TestPostgresKnowledgeRoundTrip(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	target := &model.KnowledgeRecord{
		ID:        model.NewKnowledgeID(),
		Title:     "Workflow automation basics",
		Content:   "How to automate repetitive workflows with AI agents.",
		Excerpt:   "Automate repetitive workflows.",
		URL:       "https://example.com/automation",
		Metadata:  map[string]string{"category": "automation"},
		Embedding: randomEmbedding(testVectorDim),
	}
	gt.NoError(t, repo.PutKnowledge(ctx, target))

	for i := 0; i < 3; i++ {
		gt.NoError(t, repo.PutKnowledge(ctx, &model.KnowledgeRecord{
			ID:        model.NewKnowledgeID(),
			Title:     fmt.Sprintf("Filler %d", i),
			Content:   "Unrelated content.",
			Embedding: randomEmbedding(testVectorDim),
		}))
	}

	results, err := repo.SearchKnowledge(ctx, target.Embedding, 2)
	gt.NoError(t, err)
	gt.A(t, results).Longer(0)

	// Exact vector match must rank first with similarity ~1
	gt.Equal(t, results[0].Record.ID, target.ID)
	gt.Equal(t, results[0].Record.Metadata["category"], "automation")
	gt.True(t, results[0].Similarity > 0.99)
}

func TestPostgresUpsertLead(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	email := "a@b.com"
	budget := "$50k+"
	lead := &model.Lead{
		SessionID: model.NewSessionID(),
		Attributes: model.LeadAttributes{
			Email:       &email,
			BudgetRange: &budget,
		},
		Score: 60,
		Conversation: []model.ConversationTurn{
			{Role: model.RoleUser, Content: "My email is a@b.com"},
		},
	}

	stored, inserted, err := repo.UpsertLead(ctx, lead)
	gt.NoError(t, err)
	gt.True(t, inserted)
	gt.Equal(t, *stored.Attributes.Email, email)

	// Second write with the same session key must be an update
	lead.Score = 85
	stored, inserted, err = repo.UpsertLead(ctx, lead)
	gt.NoError(t, err)
	gt.False(t, inserted)
	gt.Equal(t, stored.Score, 85)

	retrieved, err := repo.GetLead(ctx, lead.SessionID)
	gt.NoError(t, err)
	gt.Equal(t, retrieved.Score, 85)
	gt.Equal(t, *retrieved.Attributes.Email, email)
	gt.V(t, retrieved.Attributes.Company).Nil()
	gt.A(t, retrieved.Conversation).Length(1)
}

func TestPostgresGetLeadNotFound(t *testing.T) {
	repo := setupPostgres(t)

	_, err := repo.GetLead(context.Background(), model.NewSessionID())
	gt.Error(t, err)
}

func TestPostgresListLeads(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		_, _, err := repo.UpsertLead(ctx, &model.Lead{
			SessionID:  model.NewSessionID(),
			Attributes: model.LeadAttributes{Email: &email},
			Score:      60 + i,
		})
		gt.NoError(t, err)
	}

	leads, err := repo.ListLeads(ctx, 0, 100)
	gt.NoError(t, err)
	gt.A(t, leads).Longer(2)
}
