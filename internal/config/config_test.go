package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("RAG_FUSION_RRF_K", "")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("API_ADMIN_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected default top k 8, got %d", cfg.RAGTopK)
	}
	if cfg.RAGHopTopK != 4 {
		t.Fatalf("expected default hop top k 4, got %d", cfg.RAGHopTopK)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected default fusion rrf k 60, got %d", cfg.RAGFusionRRFK)
	}
	if cfg.ChunkSize != 1200 || cfg.ChunkOverlap != 200 {
		t.Fatalf("expected chunking 1200/200, got %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.RAGMinAnswerChars != 50 || cfg.RAGHistoryTurns != 6 {
		t.Fatalf("unexpected quality gate defaults %d/%d", cfg.RAGMinAnswerChars, cfg.RAGHistoryTurns)
	}
	if cfg.ResilienceRetryMaxAttempts != 1 {
		t.Fatalf("expected no automatic retries by default, got %d", cfg.ResilienceRetryMaxAttempts)
	}
	if cfg.APIAdminKey != "" {
		t.Fatalf("expected admin key disabled by default")
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "12")
	t.Setenv("RAG_VECTOR_SCORE_THRESHOLD", "0.35")
	t.Setenv("API_VALIDATE_REQUESTS", "false")
	t.Setenv("API_ADMIN_KEY", "kunci-admin")
	t.Setenv("RAG_FUSION_RRF_K", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RAGTopK != 12 {
		t.Fatalf("expected top k 12, got %d", cfg.RAGTopK)
	}
	if cfg.RAGVectorScoreThreshold != 0.35 {
		t.Fatalf("expected threshold 0.35, got %v", cfg.RAGVectorScoreThreshold)
	}
	if cfg.APIValidateRequests {
		t.Fatalf("expected request validation disabled")
	}
	if cfg.APIAdminKey != "kunci-admin" {
		t.Fatalf("expected admin key from env, got %q", cfg.APIAdminKey)
	}
	if cfg.RAGFusionRRFK != 60 {
		t.Fatalf("expected invalid value to fall back to 60, got %d", cfg.RAGFusionRRFK)
	}
}

func TestLoadOverlaysConfigFileBelowEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "qdrant_collection: kampus\nrag_top_k: 10\nollama_gen_model: qwen2.5:7b\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RAG_TOP_K", "6")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("OLLAMA_GEN_MODEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QdrantCollection != "kampus" || cfg.OllamaGenModel != "qwen2.5:7b" {
		t.Fatalf("expected file values, got %q/%q", cfg.QdrantCollection, cfg.OllamaGenModel)
	}
	if cfg.RAGTopK != 6 {
		t.Fatalf("expected env to win over file, got %d", cfg.RAGTopK)
	}
	if cfg.RAGHopTopK != 4 {
		t.Fatalf("expected untouched default, got %d", cfg.RAGHopTopK)
	}
}

func TestLoadRejectsMalformedConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("rag_top_k: [1, 2"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
