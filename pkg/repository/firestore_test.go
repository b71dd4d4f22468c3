package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestFirestorePutKnowledge(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	record := &model.KnowledgeRecord{
		ID:        model.NewKnowledgeID(),
		Title:     "Discovery call guide",
		Content:   "What happens in a discovery call.",
		Metadata:  map[string]string{"category": "sales"},
		Embedding: randomEmbedding(testVectorDim),
	}

	gt.NoError(t, repo.PutKnowledge(ctx, record))

	// Vector search requires a deployed index; only verify the write path here
}

func TestFirestoreUpsertLead(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	email := "a@b.com"
	lead := &model.Lead{
		SessionID:  model.NewSessionID(),
		Attributes: model.LeadAttributes{Email: &email},
		Score:      60,
		Conversation: []model.ConversationTurn{
			{Role: model.RoleUser, Content: "My email is a@b.com"},
		},
	}

	_, inserted, err := repo.UpsertLead(ctx, lead)
	gt.NoError(t, err)
	gt.True(t, inserted)

	_, inserted, err = repo.UpsertLead(ctx, lead)
	gt.NoError(t, err)
	gt.False(t, inserted)

	retrieved, err := repo.GetLead(ctx, lead.SessionID)
	gt.NoError(t, err)
	gt.Equal(t, *retrieved.Attributes.Email, email)
	gt.Equal(t, retrieved.Score, 60)
}

func TestFirestoreGetLeadNotFound(t *testing.T) {
	repo := setupFirestore(t)

	_, err := repo.GetLead(context.Background(), model.NewSessionID())
	gt.Error(t, err)
}
