package export

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"

	"github.com/boralio/leadbot/pkg/adapter"
	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// leadRow is the flattened analytics shape of a captured lead. Nullable
// attributes map to BigQuery NULLs through the nullable pointer fields.
type leadRow struct {
	SessionID       string    `bigquery:"session_id"`
	Name            *string   `bigquery:"name"`
	Email           *string   `bigquery:"email"`
	Phone           *string   `bigquery:"phone"`
	Company         *string   `bigquery:"company"`
	CompanySize     *string   `bigquery:"company_size"`
	BudgetRange     *string   `bigquery:"budget_range"`
	Timeline        *string   `bigquery:"timeline"`
	PainPoint       *string   `bigquery:"pain_point"`
	IsDecisionMaker *bool     `bigquery:"is_decision_maker"`
	Score           int       `bigquery:"qualification_score"`
	Turns           int       `bigquery:"conversation_turns"`
	CreatedAt       time.Time `bigquery:"created_at"`
	UpdatedAt       time.Time `bigquery:"updated_at"`
}

func leadSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "session_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "name", Type: bigquery.StringFieldType},
		{Name: "email", Type: bigquery.StringFieldType},
		{Name: "phone", Type: bigquery.StringFieldType},
		{Name: "company", Type: bigquery.StringFieldType},
		{Name: "company_size", Type: bigquery.StringFieldType},
		{Name: "budget_range", Type: bigquery.StringFieldType},
		{Name: "timeline", Type: bigquery.StringFieldType},
		{Name: "pain_point", Type: bigquery.StringFieldType},
		{Name: "is_decision_maker", Type: bigquery.BooleanFieldType},
		{Name: "qualification_score", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "conversation_turns", Type: bigquery.IntegerFieldType},
		{Name: "created_at", Type: bigquery.TimestampFieldType},
		{Name: "updated_at", Type: bigquery.TimestampFieldType},
	}
}

const exportBatchSize = 500

// Export streams all captured leads into the given BigQuery table, creating
// it on first run. Returns the number of exported leads.
func Export(ctx context.Context, repo repository.Repository, bq adapter.BigQuery, datasetID, tableID string) (int, error) {
	logger := logging.From(ctx)

	if err := bq.EnsureTable(ctx, datasetID, tableID, leadSchema()); err != nil {
		return 0, goerr.Wrap(err, "failed to prepare export table")
	}

	total := 0
	for offset := 0; ; offset += exportBatchSize {
		leads, err := repo.ListLeads(ctx, offset, exportBatchSize)
		if err != nil {
			return total, goerr.Wrap(err, "failed to list leads", goerr.V("offset", offset))
		}
		if len(leads) == 0 {
			break
		}

		rows := make([]*leadRow, 0, len(leads))
		for _, lead := range leads {
			attrs := lead.Attributes
			rows = append(rows, &leadRow{
				SessionID:       string(lead.SessionID),
				Name:            attrs.Name,
				Email:           attrs.Email,
				Phone:           attrs.Phone,
				Company:         attrs.Company,
				CompanySize:     attrs.CompanySize,
				BudgetRange:     attrs.BudgetRange,
				Timeline:        attrs.Timeline,
				PainPoint:       attrs.PainPoint,
				IsDecisionMaker: attrs.IsDecisionMaker,
				Score:           lead.Score,
				Turns:           len(lead.Conversation),
				CreatedAt:       lead.CreatedAt,
				UpdatedAt:       lead.UpdatedAt,
			})
		}

		if err := bq.Insert(ctx, datasetID, tableID, rows); err != nil {
			return total, goerr.Wrap(err, "failed to insert lead rows", goerr.V("offset", offset))
		}
		total += len(rows)

		if len(leads) < exportBatchSize {
			break
		}
	}

	logger.Info("exported leads", "count", total, "dataset", datasetID, "table", tableID)
	return total, nil
}
