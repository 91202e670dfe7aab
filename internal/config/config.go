package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application, including the
// tuned retrieval constants. Every product-tuned number is overridable
// from the environment so recalibration never needs a rebuild.
type Config struct {
	APIPort     string
	LogLevel    string
	LogFormat   string
	DBPath      string
	DocumentDir string

	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	QdrantURL             string
	QdrantPageCollection  string
	QdrantChunkCollection string
	QdrantVectorSize      int

	// Hybrid fusion weights, both must be positive.
	LexicalWeight float64
	VectorWeight  float64
	// TieEpsilon is the fused-score band treated as a tie.
	TieEpsilon float64

	// Intent boost multipliers.
	TableBoost       float64
	EquationBoost    float64
	EquationScoreMin float64

	// Confidence thresholds.
	StrongScore     float64
	MediumScore     float64
	ClusterMinScore float64
	ClusterCount    int

	GenerateTimeout time.Duration

	// RebuildVectors triggers a background vector rebuild at startup.
	RebuildVectors bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory,
// it is loaded first; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:     getEnv("API_PORT", "9000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		DBPath:      getEnv("DB_PATH", "./data/spechub.db"),
		DocumentDir: getEnv("DOCUMENT_DIR", "./data/docs"),

		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),

		QdrantURL:             getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantPageCollection:  getEnv("QDRANT_PAGE_COLLECTION", "spec_pages"),
		QdrantChunkCollection: getEnv("QDRANT_CHUNK_COLLECTION", "spec_chunks"),
	}

	// Vector size must match the embeddings model output; a mismatch is
	// caught again at collection validation.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.LexicalWeight, err = getEnvFloat("LEXICAL_WEIGHT", 0.55); err != nil {
		return nil, err
	}
	if cfg.VectorWeight, err = getEnvFloat("VECTOR_WEIGHT", 0.45); err != nil {
		return nil, err
	}
	if cfg.LexicalWeight <= 0 || cfg.VectorWeight <= 0 {
		return nil, fmt.Errorf("LEXICAL_WEIGHT and VECTOR_WEIGHT must both be greater than 0")
	}
	if cfg.TieEpsilon, err = getEnvFloat("TIE_EPSILON", 0.01); err != nil {
		return nil, err
	}

	if cfg.TableBoost, err = getEnvFloat("TABLE_BOOST", 1.25); err != nil {
		return nil, err
	}
	if cfg.EquationBoost, err = getEnvFloat("EQUATION_BOOST", 1.35); err != nil {
		return nil, err
	}
	if cfg.EquationScoreMin, err = getEnvFloat("EQUATION_SCORE_MIN", 0.45); err != nil {
		return nil, err
	}

	if cfg.StrongScore, err = getEnvFloat("CONFIDENCE_STRONG_SCORE", 0.55); err != nil {
		return nil, err
	}
	if cfg.MediumScore, err = getEnvFloat("CONFIDENCE_MEDIUM_SCORE", 0.35); err != nil {
		return nil, err
	}
	if cfg.ClusterMinScore, err = getEnvFloat("CONFIDENCE_CLUSTER_MIN_SCORE", 0.2); err != nil {
		return nil, err
	}
	clusterCount, err := strconv.Atoi(getEnv("CONFIDENCE_CLUSTER_COUNT", "3"))
	if err != nil {
		return nil, fmt.Errorf("CONFIDENCE_CLUSTER_COUNT must be a valid integer: %w", err)
	}
	cfg.ClusterCount = clusterCount

	timeoutStr := getEnv("GENERATE_TIMEOUT", "25s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("GENERATE_TIMEOUT must be a valid duration: %w", err)
	}
	cfg.GenerateTimeout = timeout

	cfg.RebuildVectors = strings.EqualFold(getEnv("REBUILD_VECTORS", "false"), "true")

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}
