package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"spechub/internal/answer"
	"spechub/internal/config"
	"spechub/internal/http"
	"spechub/internal/indexer"
	"spechub/internal/llm"
	"spechub/internal/search"
	"spechub/internal/storage"
	"spechub/internal/tables"
	"spechub/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	tableRepo := storage.NewTableRepo(db)

	ctx := context.Background()

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	snapshots := search.NewSnapshots()
	builder := indexer.NewBuilder(
		documentRepo,
		chunkRepo,
		snapshots,
		vectorStore,
		embedder,
		cfg.QdrantPageCollection,
		cfg.QdrantChunkCollection,
		cfg.QdrantVectorSize,
	)

	// Build the lexical snapshots before serving; these are cheap and
	// the service is blind without them.
	if err := builder.BuildLexical(ctx, search.GranularityChunk); err != nil {
		log.Fatalf("Failed to build chunk index: %v", err)
	}
	if err := builder.BuildLexical(ctx, search.GranularityPage); err != nil {
		log.Fatalf("Failed to build page index: %v", err)
	}

	retriever := search.NewRetriever(
		snapshots,
		vectorStore,
		embedder,
		cfg.QdrantPageCollection,
		cfg.QdrantChunkCollection,
		search.Options{
			LexicalWeight:    cfg.LexicalWeight,
			VectorWeight:     cfg.VectorWeight,
			TieEpsilon:       cfg.TieEpsilon,
			TableBoost:       cfg.TableBoost,
			EquationBoost:    cfg.EquationBoost,
			EquationScoreMin: cfg.EquationScoreMin,
		},
	)

	engine := answer.NewEngine(
		retriever,
		chunkRepo,
		tableRepo,
		llmClient,
		search.Thresholds{
			Strong:       cfg.StrongScore,
			Medium:       cfg.MediumScore,
			ClusterMin:   cfg.ClusterMinScore,
			ClusterCount: cfg.ClusterCount,
		},
		cfg.GenerateTimeout,
	)
	slog.Info("Answer engine initialized")

	deps := &http.Deps{
		AskEngine:   engine,
		Retriever:   retriever,
		Projector:   tables.NewProjector(tableRepo),
		Documents:   documentRepo,
		DocumentDir: cfg.DocumentDir,
		DB:          db,
		Snapshots:   snapshots,
	}
	router := http.NewRouter(deps)

	// Refresh the vector collections in the background; readers keep
	// working against whatever points already exist.
	if cfg.RebuildVectors {
		go func() {
			rebuildCtx := context.Background()
			slog.Info("Starting background vector rebuild")
			if err := builder.BuildVectors(rebuildCtx, search.GranularityChunk); err != nil {
				slog.Error("Chunk vector rebuild failed", "error", err)
			}
			if err := builder.BuildVectors(rebuildCtx, search.GranularityPage); err != nil {
				slog.Error("Page vector rebuild failed", "error", err)
			}
			slog.Info("Vector rebuild finished")
		}()
	}

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
