package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/repository"
	"github.com/m-mizutani/orgintel/pkg/usecase/agentlog"
	"github.com/m-mizutani/orgintel/pkg/usecase/agents"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
	"github.com/m-mizutani/orgintel/pkg/usecase/critic"
	"github.com/m-mizutani/orgintel/pkg/usecase/memory"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"github.com/m-mizutani/orgintel/pkg/workflow"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string
	format   string

	// Record source and state documents
	source       string
	bucket       string
	memoryFile   string
	agentLogFile string

	bigqueryProject   string
	bigqueryLocation  string
	bigqueryQuery     string
	bigqueryScanLimit int64

	// LLM
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Graph store
	neo4jURI          string
	neo4jUser         string
	neo4jPassword     string
	neo4jDatabase     string
	firestoreProject  string
	firestoreDatabase string

	policyDir string
}

// globalFlags returns flags shared by every command
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("ORGINTEL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (json, yaml)",
			Value:       formatJSON,
			Sources:     cli.EnvVars("ORGINTEL_FORMAT"),
			Destination: &cfg.format,
		},
	}
}

// sourceFlags returns flags selecting where records and state documents live
func sourceFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "source",
			Aliases:     []string{"s"},
			Usage:       "JSON record file (object key when --bucket is set)",
			Value:       "emails.json",
			Sources:     cli.EnvVars("ORGINTEL_SOURCE"),
			Destination: &cfg.source,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket holding the record file and state documents",
			Sources:     cli.EnvVars("ORGINTEL_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "memory-file",
			Usage:       "Knowledge memory document",
			Value:       memory.DefaultKey,
			Sources:     cli.EnvVars("ORGINTEL_MEMORY_FILE"),
			Destination: &cfg.memoryFile,
		},
		&cli.StringFlag{
			Name:        "agent-log-file",
			Usage:       "Agent output log document",
			Value:       agentlog.DefaultKey,
			Sources:     cli.EnvVars("ORGINTEL_AGENT_LOG_FILE"),
			Destination: &cfg.agentLogFile,
		},
		&cli.StringFlag{
			Name:        "bigquery-project",
			Usage:       "Google Cloud project ID for BigQuery",
			Sources:     cli.EnvVars("ORGINTEL_BIGQUERY_PROJECT"),
			Destination: &cfg.bigqueryProject,
		},
		&cli.StringFlag{
			Name:        "bigquery-location",
			Usage:       "BigQuery location",
			Sources:     cli.EnvVars("ORGINTEL_BIGQUERY_LOCATION"),
			Destination: &cfg.bigqueryLocation,
		},
		&cli.StringFlag{
			Name:        "bigquery-query",
			Usage:       "SQL returning sender, receiver, subject, timestamp and body columns; replaces --source",
			Sources:     cli.EnvVars("ORGINTEL_BIGQUERY_QUERY"),
			Destination: &cfg.bigqueryQuery,
		},
		&cli.IntFlag{
			Name:        "bigquery-scan-limit",
			Usage:       "Maximum bytes the query may scan (0 for no limit)",
			Value:       10 * 1024 * 1024 * 1024,
			Sources:     cli.EnvVars("ORGINTEL_BIGQUERY_SCAN_LIMIT"),
			Destination: &cfg.bigqueryScanLimit,
		},
	}
}

// llmFlags returns flags for LLM-related configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("ORGINTEL_GEMINI_PROJECT", "GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("ORGINTEL_GEMINI_LOCATION", "GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("ORGINTEL_GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// graphFlags returns flags selecting the graph store
func graphFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "neo4j-uri",
			Usage:       "Neo4j URI, e.g. neo4j+s://xxxx.databases.neo4j.io",
			Sources:     cli.EnvVars("NEO4J_URI"),
			Destination: &cfg.neo4jURI,
		},
		&cli.StringFlag{
			Name:        "neo4j-user",
			Usage:       "Neo4j user",
			Value:       "neo4j",
			Sources:     cli.EnvVars("NEO4J_USER"),
			Destination: &cfg.neo4jUser,
		},
		&cli.StringFlag{
			Name:        "neo4j-password",
			Usage:       "Neo4j password",
			Sources:     cli.EnvVars("NEO4J_PASSWORD"),
			Destination: &cfg.neo4jPassword,
		},
		&cli.StringFlag{
			Name:        "neo4j-database",
			Usage:       "Neo4j database name (server default when empty)",
			Sources:     cli.EnvVars("NEO4J_DATABASE"),
			Destination: &cfg.neo4jDatabase,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for the Firestore graph store",
			Sources:     cli.EnvVars("ORGINTEL_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("ORGINTEL_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
	}
}

// policyFlags returns flags for conflict triage policies
func policyFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego triage policies (package triage)",
			Sources:     cli.EnvVars("ORGINTEL_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// withLogger attaches the configured logger to ctx
func (cfg *config) withLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

func missing(name string) error {
	return goerr.Wrap(model.ErrConfigurationMissing, "required option is not set", goerr.V("option", name))
}

// newStorage returns Cloud Storage when a bucket is set, otherwise the local
// filesystem relative to the working directory
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return adapter.NewFileStorage("."), nil
	}

	storage, err := adapter.NewCloudStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newRecordStore reads records from BigQuery when a query is set, otherwise
// from the JSON source in storage
func (cfg *config) newRecordStore(ctx context.Context, storage adapter.Storage) (*record.Store, error) {
	if cfg.bigqueryQuery != "" {
		if cfg.bigqueryProject == "" {
			return nil, missing("bigquery-project")
		}

		var opts []adapter.BigQueryOption
		if cfg.bigqueryLocation != "" {
			opts = append(opts, adapter.WithLocation(cfg.bigqueryLocation))
		}
		bq, err := adapter.NewBigQuery(ctx, cfg.bigqueryProject, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create bigquery client")
		}
		return record.New(record.NewBigQuerySource(bq, cfg.bigqueryQuery, record.WithScanLimit(cfg.bigqueryScanLimit))), nil
	}

	if cfg.source == "" {
		return nil, missing("source")
	}
	return record.New(record.NewJSONSource(storage, cfg.source)), nil
}

// newEngine loads the records and builds the analytics engine
func (cfg *config) newEngine(ctx context.Context) (*analytics.Engine, adapter.Storage, error) {
	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, err := cfg.newRecordStore(ctx, storage)
	if err != nil {
		return nil, nil, err
	}

	engine, err := analytics.New(ctx, store)
	if err != nil {
		return nil, nil, err
	}
	return engine, storage, nil
}

// newGemini creates a Gemini client
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, missing("gemini-project")
	}
	if cfg.geminiLocation == "" {
		return nil, missing("gemini-location")
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

// newGraph connects to Neo4j when a URI is set, otherwise to Firestore
func (cfg *config) newGraph(ctx context.Context) (repository.Graph, error) {
	switch {
	case cfg.neo4jURI != "":
		if cfg.neo4jPassword == "" {
			return nil, missing("neo4j-password")
		}
		var opts []repository.Neo4jOption
		if cfg.neo4jDatabase != "" {
			opts = append(opts, repository.WithNeo4jDatabase(cfg.neo4jDatabase))
		}
		return repository.NewNeo4j(ctx, cfg.neo4jURI, cfg.neo4jUser, cfg.neo4jPassword, opts...)

	case cfg.firestoreProject != "":
		return repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)

	default:
		return nil, missing("neo4j-uri or firestore-project")
	}
}

// newRunner builds the reasoning agents sharing engine, with their outputs
// recorded to the agent log
func (cfg *config) newRunner(ctx context.Context, engine *analytics.Engine, storage adapter.Storage) (*agents.Runner, *memory.UseCase, error) {
	triage, err := workflow.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load triage policies", goerr.V("dir", cfg.policyDir))
	}

	mem := memory.New(ctx, engine, storage, memory.WithKey(cfg.memoryFile))
	runner := agents.New(
		mem,
		critic.New(engine, critic.WithTriage(triage)),
		coordinator.New(engine),
		agents.WithRecorder(agentlog.New(storage, agentlog.WithKey(cfg.agentLogFile))),
	)
	return runner, mem, nil
}
