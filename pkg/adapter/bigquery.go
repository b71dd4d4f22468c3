package adapter

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// BigQuery is an interface for exporting lead rows to an analytics table
type BigQuery interface {
	// EnsureTable creates the destination table with the given schema if it
	// does not exist yet
	EnsureTable(ctx context.Context, datasetID, tableID string, schema bigquery.Schema) error

	// Insert streams rows into the destination table. rows must be a slice of
	// structs compatible with the table schema.
	Insert(ctx context.Context, datasetID, tableID string, rows any) error
}

type bigqueryClient struct {
	client *bigquery.Client
}

// NewBigQuery creates a new BigQuery client
func NewBigQuery(ctx context.Context, projectID string) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	return &bigqueryClient{client: client}, nil
}

func (bq *bigqueryClient) EnsureTable(ctx context.Context, datasetID, tableID string, schema bigquery.Schema) error {
	dataset := bq.client.Dataset(datasetID)

	// Check the dataset exists before touching the table
	it := dataset.Tables(ctx)
	for {
		tbl, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to list tables", goerr.V("dataset", datasetID))
		}
		if tbl.TableID == tableID {
			return nil
		}
	}

	if err := dataset.Table(tableID).Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return goerr.Wrap(err, "failed to create table",
			goerr.V("dataset", datasetID),
			goerr.V("table", tableID))
	}

	return nil
}

func (bq *bigqueryClient) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	inserter := bq.client.Dataset(datasetID).Table(tableID).Inserter()

	if err := inserter.Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to insert rows",
			goerr.V("dataset", datasetID),
			goerr.V("table", tableID))
	}

	return nil
}
