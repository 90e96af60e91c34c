package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{APIKey: "  "}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewAppliesDefaultModels(t *testing.T) {
	c, err := New(context.Background(), Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.embeddingModel != DefaultEmbeddingModel || c.generationModel != DefaultGenerationModel {
		t.Fatalf("models = %q/%q", c.embeddingModel, c.generationModel)
	}
}

func TestEmbedConfigRequestsSemanticSimilarity(t *testing.T) {
	cfg := embedConfig()
	if cfg == nil || cfg.TaskType != "SEMANTIC_SIMILARITY" {
		t.Fatalf("embed config = %+v", cfg)
	}
	if cfg.OutputDimensionality != nil {
		t.Fatalf("output dimensionality = %d, want model default", *cfg.OutputDimensionality)
	}
}

func TestEmbedEmptyInputSkipsProvider(t *testing.T) {
	var c Client
	vectors, err := c.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("embed(nil) = %v, %v", vectors, err)
	}
}
