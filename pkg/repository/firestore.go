package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/boralio/leadbot/pkg/model"
)

const (
	knowledgeCollection = "knowledge"
	leadCollection      = "leads"

	distanceField = "vector_distance"
)

// Firestore implements Repository using Firestore with vector search
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

// knowledgeDoc is the Firestore document shape for a knowledge record
type knowledgeDoc struct {
	Title     string             `firestore:"title"`
	Content   string             `firestore:"content"`
	Excerpt   string             `firestore:"excerpt"`
	URL       string             `firestore:"url"`
	Metadata  map[string]string  `firestore:"metadata"`
	Embedding firestore.Vector32 `firestore:"embedding"`
	CreatedAt time.Time          `firestore:"created_at"`

	// populated only by vector search results
	Distance float64 `firestore:"vector_distance"`
}

func (r *Firestore) PutKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	doc := knowledgeDoc{
		Title:     record.Title,
		Content:   record.Content,
		Excerpt:   record.Excerpt,
		URL:       record.URL,
		Metadata:  record.Metadata,
		Embedding: firestore.Vector32(record.Embedding),
		CreatedAt: time.Now(),
	}

	if _, err := r.client.Collection(knowledgeCollection).Doc(string(record.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put knowledge record", goerr.V("id", record.ID))
	}

	return nil
}

func (r *Firestore) SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredKnowledge, error) {
	query := r.client.Collection(knowledgeCollection).FindNearest(
		"embedding",
		firestore.Vector32(embedding),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{
			DistanceResultField: distanceField,
		},
	)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var results []*model.ScoredKnowledge
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var doc knowledgeDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode knowledge record", goerr.V("id", snap.Ref.ID))
		}

		results = append(results, &model.ScoredKnowledge{
			Record: &model.KnowledgeRecord{
				ID:        model.KnowledgeID(snap.Ref.ID),
				Title:     doc.Title,
				Content:   doc.Content,
				Excerpt:   doc.Excerpt,
				URL:       doc.URL,
				Metadata:  doc.Metadata,
				Embedding: []float32(doc.Embedding),
			},
			// cosine distance -> similarity
			Similarity: 1 - doc.Distance,
		})
	}

	return results, nil
}

// leadDoc is the Firestore document shape for a persisted lead
type leadDoc struct {
	Attributes   model.LeadAttributes     `firestore:"attributes"`
	Score        int                      `firestore:"score"`
	Conversation []model.ConversationTurn `firestore:"conversation"`
	CreatedAt    time.Time                `firestore:"created_at"`
	UpdatedAt    time.Time                `firestore:"updated_at"`
}

func (r *Firestore) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	docRef := r.client.Collection(leadCollection).Doc(string(lead.SessionID))

	var (
		inserted bool
		stored   = *lead
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now()
		doc := leadDoc{
			Attributes:   lead.Attributes,
			Score:        lead.Score,
			Conversation: lead.Conversation,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		snap, err := tx.Get(docRef)
		switch {
		case status.Code(err) == codes.NotFound:
			inserted = true

		case err != nil:
			return goerr.Wrap(err, "failed to get lead document")

		default:
			inserted = false
			var prev leadDoc
			if err := snap.DataTo(&prev); err != nil {
				return goerr.Wrap(err, "failed to decode existing lead")
			}
			doc.CreatedAt = prev.CreatedAt
		}

		stored.CreatedAt = doc.CreatedAt
		stored.UpdatedAt = doc.UpdatedAt

		return tx.Set(docRef, doc)
	})
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to upsert lead", goerr.V("session_id", lead.SessionID))
	}

	return &stored, inserted, nil
}

func (r *Firestore) GetLead(ctx context.Context, sessionID model.SessionID) (*model.Lead, error) {
	snap, err := r.client.Collection(leadCollection).Doc(string(sessionID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.New("lead not found", goerr.V("session_id", sessionID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get lead", goerr.V("session_id", sessionID))
	}

	return snapToLead(snap)
}

func (r *Firestore) ListLeads(ctx context.Context, offset, limit int) ([]*model.Lead, error) {
	iter := r.client.Collection(leadCollection).
		OrderBy("updated_at", firestore.Desc).
		Offset(offset).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var leads []*model.Lead
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate leads")
		}

		lead, err := snapToLead(snap)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, nil
}

func snapToLead(snap *firestore.DocumentSnapshot) (*model.Lead, error) {
	var doc leadDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode lead", goerr.V("session_id", snap.Ref.ID))
	}

	return &model.Lead{
		SessionID:    model.SessionID(snap.Ref.ID),
		Attributes:   doc.Attributes,
		Score:        doc.Score,
		Conversation: doc.Conversation,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

var _ Repository = (*Firestore)(nil)
