package knowledge

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/boralio/leadbot/pkg/adapter"
	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// Document is one corpus entry as authored in the source YAML file.
type Document struct {
	Title    string            `yaml:"title"`
	Content  string            `yaml:"content"`
	Excerpt  string            `yaml:"excerpt"`
	URL      string            `yaml:"url"`
	Metadata map[string]string `yaml:"metadata"`
}

// Corpus is the root of a knowledge base YAML file.
type Corpus struct {
	Documents []Document `yaml:"documents"`
}

type UseCase struct {
	repo        repository.Repository
	gemini      adapter.Gemini
	callTimeout time.Duration
}

const defaultCallTimeout = 30 * time.Second

type Option func(*UseCase)

func WithCallTimeout(d time.Duration) Option {
	return func(u *UseCase) {
		u.callTimeout = d
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	u := &UseCase{
		repo:        repo,
		gemini:      gemini,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// LoadCorpus reads a YAML knowledge base file from disk.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read corpus file", goerr.V("path", path))
	}

	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, goerr.Wrap(err, "failed to parse corpus file", goerr.V("path", path))
	}

	if len(corpus.Documents) == 0 {
		return nil, goerr.New("corpus file has no documents", goerr.V("path", path))
	}

	return &corpus, nil
}

// Ingest embeds each document and stores it in the knowledge base. Unlike the
// chat path, ingestion is an operator action: any failure aborts the run so
// the corpus is never half-indexed silently.
func (u *UseCase) Ingest(ctx context.Context, corpus *Corpus) (int, error) {
	logger := logging.From(ctx)

	for i, doc := range corpus.Documents {
		if doc.Title == "" || doc.Content == "" {
			return i, goerr.New("document requires title and content", goerr.V("index", i))
		}

		record := &model.KnowledgeRecord{
			ID:       model.NewKnowledgeID(),
			Title:    doc.Title,
			Content:  doc.Content,
			Excerpt:  doc.Excerpt,
			URL:      doc.URL,
			Metadata: doc.Metadata,
		}

		ectx, cancel := context.WithTimeout(ctx, u.callTimeout)
		embedding, err := u.gemini.Embedding(ectx, doc.Title+"\n"+doc.Content)
		cancel()
		if err != nil {
			return i, goerr.Wrap(err, "failed to embed document", goerr.V("title", doc.Title))
		}
		record.Embedding = embedding

		pctx, cancel := context.WithTimeout(ctx, u.callTimeout)
		err = u.repo.PutKnowledge(pctx, record)
		cancel()
		if err != nil {
			return i, goerr.Wrap(err, "failed to store document", goerr.V("title", doc.Title))
		}

		logger.Info("ingested document", "title", doc.Title, "id", record.ID)
	}

	return len(corpus.Documents), nil
}
