package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/boralio/leadbot/pkg/adapter"
	"github.com/boralio/leadbot/pkg/repository"
	"github.com/boralio/leadbot/pkg/usecase/conversation"
	"github.com/boralio/leadbot/pkg/usecase/knowledge"
	"github.com/boralio/leadbot/pkg/workflow"
)

// config holds configuration values shared across commands
type config struct {
	// Repository
	backend           string
	databaseURL       string
	firestoreProject  string
	firestoreDatabase string
	vectorDim         int64

	// Gemini
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Notification
	mailgunDomain string
	mailgunAPIKey string
	mailFrom      string
	mailTo        string

	// Lead qualification
	qualifyThreshold int64
	retrieveLimit    int64
	policyDir        string
	archiveBucket    string
}

func repositoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Storage backend (postgres or firestore)",
			Value:       "postgres",
			Sources:     cli.EnvVars("LEADBOT_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection string",
			Sources:     cli.EnvVars("DATABASE_URL"),
			Destination: &cfg.databaseURL,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.IntFlag{
			Name:        "vector-dim",
			Usage:       "Embedding vector dimensionality",
			Value:       768,
			Sources:     cli.EnvVars("LEADBOT_VECTOR_DIM"),
			Destination: &cfg.vectorDim,
		},
	}
}

func geminiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for reply generation and extraction",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("LEADBOT_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("LEADBOT_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

func notificationFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mailgun-domain",
			Usage:       "Mailgun sending domain",
			Sources:     cli.EnvVars("MAILGUN_DOMAIN"),
			Destination: &cfg.mailgunDomain,
		},
		&cli.StringFlag{
			Name:        "mailgun-api-key",
			Usage:       "Mailgun API key",
			Sources:     cli.EnvVars("MAILGUN_API_KEY"),
			Destination: &cfg.mailgunAPIKey,
		},
		&cli.StringFlag{
			Name:        "mail-from",
			Usage:       "Sender address for lead notifications",
			Sources:     cli.EnvVars("LEADBOT_MAIL_FROM"),
			Destination: &cfg.mailFrom,
		},
		&cli.StringFlag{
			Name:        "mail-to",
			Usage:       "Default recipient for lead notifications",
			Sources:     cli.EnvVars("LEADBOT_MAIL_TO"),
			Destination: &cfg.mailTo,
		},
	}
}

func qualificationFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "qualify-threshold",
			Usage:       "Minimum score for lead persistence",
			Value:       conversation.DefaultQualifyThreshold,
			Sources:     cli.EnvVars("LEADBOT_QUALIFY_THRESHOLD"),
			Destination: &cfg.qualifyThreshold,
		},
		&cli.IntFlag{
			Name:        "retrieve-limit",
			Usage:       "Number of knowledge documents retrieved per turn",
			Value:       conversation.DefaultRetrieveLimit,
			Sources:     cli.EnvVars("LEADBOT_RETRIEVE_LIMIT"),
			Destination: &cfg.retrieveLimit,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies for notification routing",
			Sources:     cli.EnvVars("LEADBOT_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "GCS bucket for lead transcript archives",
			Sources:     cli.EnvVars("LEADBOT_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
	}
}

// newRepository creates the configured repository backend
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.backend {
	case "postgres":
		if cfg.databaseURL == "" {
			return nil, goerr.New("database-url is required for the postgres backend")
		}
		repo, err := repository.NewPostgres(cfg.databaseURL,
			repository.WithVectorDim(int(cfg.vectorDim)))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create postgres repository")
		}
		return repo, nil

	case "firestore":
		if cfg.firestoreProject == "" {
			return nil, goerr.New("firestore-project is required for the firestore backend")
		}
		repo, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
		adapter.WithEmbeddingDim(int32(cfg.vectorDim)),
	)
}

// newConversationUseCase wires the full chat pipeline. Notification, routing
// and archiving are attached only when configured.
func (cfg *config) newConversationUseCase(ctx context.Context, repo repository.Repository, gemini adapter.Gemini) (*conversation.UseCase, error) {
	opts := []conversation.Option{
		conversation.WithQualifyThreshold(int(cfg.qualifyThreshold)),
		conversation.WithRetrieveLimit(int(cfg.retrieveLimit)),
	}

	if cfg.mailgunDomain != "" {
		if cfg.mailgunAPIKey == "" || cfg.mailFrom == "" || cfg.mailTo == "" {
			return nil, goerr.New("mailgun-api-key, mail-from and mail-to are required when mailgun-domain is set")
		}
		notifier := adapter.NewMailgun(cfg.mailgunDomain, cfg.mailgunAPIKey, cfg.mailFrom)
		opts = append(opts, conversation.WithNotifier(notifier, cfg.mailTo))
	}

	if cfg.policyDir != "" {
		router, err := workflow.New(ctx, cfg.policyDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load routing policies")
		}
		opts = append(opts, conversation.WithRouter(router))
	}

	if cfg.archiveBucket != "" {
		archiver, err := adapter.NewStorageArchiver(ctx, cfg.archiveBucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create archive storage")
		}
		opts = append(opts, conversation.WithArchiver(archiver))
	}

	return conversation.New(repo, gemini, opts...), nil
}

func (cfg *config) newKnowledgeUseCase(ctx context.Context) (*knowledge.UseCase, repository.Repository, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	return knowledge.New(repo, gemini), repo, nil
}
