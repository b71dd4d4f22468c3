package export_test

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/gt"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/usecase/export"
)

type stubBigQuery struct {
	schema    bigquery.Schema
	inserts   [][]any
	ensureErr error
	insertErr error
}

func (bq *stubBigQuery) EnsureTable(ctx context.Context, datasetID, tableID string, schema bigquery.Schema) error {
	if bq.ensureErr != nil {
		return bq.ensureErr
	}
	bq.schema = schema
	return nil
}

func (bq *stubBigQuery) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	if bq.insertErr != nil {
		return bq.insertErr
	}
	bq.inserts = append(bq.inserts, []any{rows})
	return nil
}

type stubRepo struct {
	leads   []*model.Lead
	listErr error
}

func (r *stubRepo) PutKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	return errors.New("not used")
}

func (r *stubRepo) SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredKnowledge, error) {
	return nil, errors.New("not used")
}

func (r *stubRepo) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	return nil, false, errors.New("not used")
}

func (r *stubRepo) GetLead(ctx context.Context, sessionID model.SessionID) (*model.Lead, error) {
	return nil, errors.New("not used")
}

func (r *stubRepo) ListLeads(ctx context.Context, offset, limit int) ([]*model.Lead, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if offset >= len(r.leads) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.leads) {
		end = len(r.leads)
	}
	return r.leads[offset:end], nil
}

func (r *stubRepo) Close() error { return nil }

func makeLeads(n int) []*model.Lead {
	email := "a@b.com"
	leads := make([]*model.Lead, n)
	for i := range leads {
		leads[i] = &model.Lead{
			SessionID:  model.NewSessionID(),
			Attributes: model.LeadAttributes{Email: &email},
			Score:      65,
		}
	}
	return leads
}

func TestExport(t *testing.T) {
	repo := &stubRepo{leads: makeLeads(3)}
	bq := &stubBigQuery{}

	n, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
	gt.NoError(t, err)
	gt.Equal(t, n, 3)
	gt.A(t, bq.inserts).Length(1)
	gt.A(t, bq.schema).Longer(0)
}

func TestExportEmpty(t *testing.T) {
	repo := &stubRepo{}
	bq := &stubBigQuery{}

	n, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
	gt.NoError(t, err)
	gt.Equal(t, n, 0)
	gt.A(t, bq.inserts).Length(0)
}

func TestExportBatches(t *testing.T) {
	repo := &stubRepo{leads: makeLeads(750)}
	bq := &stubBigQuery{}

	n, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
	gt.NoError(t, err)
	gt.Equal(t, n, 750)
	gt.A(t, bq.inserts).Length(2)
}

func TestExportErrors(t *testing.T) {
	t.Run("ensure table fails", func(t *testing.T) {
		repo := &stubRepo{leads: makeLeads(1)}
		bq := &stubBigQuery{ensureErr: errors.New("denied")}
		_, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
		gt.Error(t, err)
	})

	t.Run("insert fails", func(t *testing.T) {
		repo := &stubRepo{leads: makeLeads(1)}
		bq := &stubBigQuery{insertErr: errors.New("stream closed")}
		_, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
		gt.Error(t, err)
	})

	t.Run("list fails", func(t *testing.T) {
		repo := &stubRepo{listErr: errors.New("db down")}
		bq := &stubBigQuery{}
		_, err := export.Export(context.Background(), repo, bq, "analytics", "leads")
		gt.Error(t, err)
	})
}
