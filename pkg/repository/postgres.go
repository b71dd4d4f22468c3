package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/boralio/leadbot/pkg/model"
)

const (
	defaultVectorDim = 768

	// ivfflat index lists and the matching probes setting. probes must match
	// the lists parameter of the index or recall drops sharply with the
	// default of 1.
	ivfflatLists  = 100
	ivfflatProbes = 100
)

// Postgres implements Repository using PostgreSQL with the pgvector extension
type Postgres struct {
	db        *sql.DB
	vectorDim int
}

type PostgresOption func(*Postgres)

// WithVectorDim sets the width of the embedding vector column. It must match
// the embedding model's output dimensionality.
func WithVectorDim(dim int) PostgresOption {
	return func(p *Postgres) {
		p.vectorDim = dim
	}
}

// NewPostgres creates a PostgreSQL repository from a DSN
func NewPostgres(dsn string, opts ...PostgresOption) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	p := &Postgres{
		db:        db,
		vectorDim: defaultVectorDim,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// InitSchema creates the knowledge and lead tables and the vector index
func (p *Postgres) InitSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS knowledge_records (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		excerpt TEXT,
		url TEXT,
		metadata JSONB,
		embedding vector(%d),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS knowledge_records_embedding_idx
		ON knowledge_records
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d);

	CREATE TABLE IF NOT EXISTS leads (
		session_id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT,
		phone TEXT,
		company TEXT,
		company_size TEXT,
		budget_range TEXT,
		timeline TEXT,
		pain_point TEXT,
		is_decision_maker BOOLEAN,
		qualification_score INTEGER NOT NULL DEFAULT 0,
		conversation JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`, p.vectorDim, ivfflatLists)

	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to initialize schema")
	}

	return nil
}

func (p *Postgres) PutKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal metadata", goerr.V("id", record.ID))
	}

	query := `
		INSERT INTO knowledge_records (id, title, content, excerpt, url, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			excerpt = EXCLUDED.excerpt,
			url = EXCLUDED.url,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`

	_, err = p.db.ExecContext(ctx, query,
		string(record.ID),
		record.Title,
		record.Content,
		record.Excerpt,
		record.URL,
		metadata,
		pgvector.NewVector(record.Embedding),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to put knowledge record", goerr.V("id", record.ID))
	}

	return nil
}

func (p *Postgres) SearchKnowledge(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredKnowledge, error) {
	// SET and SELECT must run on the same connection for probes to apply
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET ivfflat.probes = %d", ivfflatProbes)); err != nil {
		return nil, goerr.Wrap(err, "failed to set ivfflat probes")
	}

	query := `
		SELECT
			id, title, content, excerpt, url, metadata,
			(1 - (embedding <=> $1))::float AS similarity
		FROM knowledge_records
		ORDER BY embedding <=> $1 ASC
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := conn.QueryContext(ctx, query, vec, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search knowledge records")
	}
	defer rows.Close()

	var results []*model.ScoredKnowledge
	for rows.Next() {
		var (
			record   model.KnowledgeRecord
			metadata []byte
			sim      float64
		)
		if err := rows.Scan(&record.ID, &record.Title, &record.Content, &record.Excerpt, &record.URL, &metadata, &sim); err != nil {
			return nil, goerr.Wrap(err, "failed to scan knowledge record")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal metadata", goerr.V("id", record.ID))
			}
		}
		results = append(results, &model.ScoredKnowledge{
			Record:     &record,
			Similarity: sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate knowledge records")
	}

	return results, nil
}

func (p *Postgres) UpsertLead(ctx context.Context, lead *model.Lead) (*model.Lead, bool, error) {
	conversation, err := json.Marshal(lead.Conversation)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to marshal conversation", goerr.V("session_id", lead.SessionID))
	}

	// (xmax = 0) distinguishes a fresh insert from a conflict update
	query := `
		INSERT INTO leads (
			session_id, name, email, phone, company, company_size,
			budget_range, timeline, pain_point, is_decision_maker,
			qualification_score, conversation
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			company = EXCLUDED.company,
			company_size = EXCLUDED.company_size,
			budget_range = EXCLUDED.budget_range,
			timeline = EXCLUDED.timeline,
			pain_point = EXCLUDED.pain_point,
			is_decision_maker = EXCLUDED.is_decision_maker,
			qualification_score = EXCLUDED.qualification_score,
			conversation = EXCLUDED.conversation,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at, (xmax = 0) AS inserted
	`

	attrs := lead.Attributes
	stored := *lead
	var inserted bool

	err = p.db.QueryRowContext(ctx, query,
		string(lead.SessionID),
		attrs.Name,
		attrs.Email,
		attrs.Phone,
		attrs.Company,
		attrs.CompanySize,
		attrs.BudgetRange,
		attrs.Timeline,
		attrs.PainPoint,
		attrs.IsDecisionMaker,
		lead.Score,
		conversation,
	).Scan(&stored.CreatedAt, &stored.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to upsert lead", goerr.V("session_id", lead.SessionID))
	}

	return &stored, inserted, nil
}

func (p *Postgres) GetLead(ctx context.Context, sessionID model.SessionID) (*model.Lead, error) {
	query := leadSelectColumns + ` FROM leads WHERE session_id = $1`

	lead, err := scanLead(p.db.QueryRowContext(ctx, query, string(sessionID)))
	if err == sql.ErrNoRows {
		return nil, goerr.New("lead not found", goerr.V("session_id", sessionID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get lead", goerr.V("session_id", sessionID))
	}

	return lead, nil
}

func (p *Postgres) ListLeads(ctx context.Context, offset, limit int) ([]*model.Lead, error) {
	query := leadSelectColumns + ` FROM leads ORDER BY updated_at DESC OFFSET $1 LIMIT $2`

	rows, err := p.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list leads")
	}
	defer rows.Close()

	var leads []*model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan lead")
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate leads")
	}

	return leads, nil
}

const leadSelectColumns = `
	SELECT
		session_id, name, email, phone, company, company_size,
		budget_range, timeline, pain_point, is_decision_maker,
		qualification_score, conversation, created_at, updated_at`

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (*model.Lead, error) {
	var (
		lead         model.Lead
		sessionID    string
		conversation []byte
	)

	if err := row.Scan(
		&sessionID,
		&lead.Attributes.Name,
		&lead.Attributes.Email,
		&lead.Attributes.Phone,
		&lead.Attributes.Company,
		&lead.Attributes.CompanySize,
		&lead.Attributes.BudgetRange,
		&lead.Attributes.Timeline,
		&lead.Attributes.PainPoint,
		&lead.Attributes.IsDecisionMaker,
		&lead.Score,
		&conversation,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}

	lead.SessionID = model.SessionID(sessionID)
	if len(conversation) > 0 {
		if err := json.Unmarshal(conversation, &lead.Conversation); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal conversation", goerr.V("session_id", sessionID))
		}
	}

	return &lead, nil
}

var _ Repository = (*Postgres)(nil)
