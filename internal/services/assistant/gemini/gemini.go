// Package gemini implements the assistant's embedder and generator on the
// Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/louisbranch/baranex/internal/platform/timeouts"
)

// Default models.
const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultGenerationModel = "gemini-2.5-flash"
)

// taskSemanticSimilarity tunes embeddings for comparing texts with each other.
const taskSemanticSimilarity = "SEMANTIC_SIMILARITY"

// ErrMissingAPIKey is returned when no key is configured.
var ErrMissingAPIKey = errors.New("genai api key is required")

// Config configures a Client.
type Config struct {
	APIKey          string
	EmbeddingModel  string
	GenerationModel string
}

// Client embeds and generates text through Gemini.
type Client struct {
	client          *genai.Client
	embeddingModel  string
	generationModel string
}

// New builds a Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &Client{
		client:          client,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.generationModel == "" {
		c.generationModel = DefaultGenerationModel
	}
	return c, nil
}

// Embed returns one vector per text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.LLMRequest)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, embedConfig())
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}
	out := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func embedConfig() *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{TaskType: taskSemanticSimilarity}
}

// Generate answers prompt under the system instruction.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.LLMRequest)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.generationModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("genai generate returned no text")
	}
	return text, nil
}
