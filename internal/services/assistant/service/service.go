// Package service implements embedding backfill and question answering.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/services/assistant/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// Retrieval tuning.
const (
	BatchSize = 32
	TopK      = 5
	MinScore  = 0.55
)

// ErrNotConfigured is returned when the store is missing.
var ErrNotConfigured = errors.New("assistant service is not configured")

var errNoProvider = apperrors.New(apperrors.CodeUnavailable, "assistant is not available")

// Embedder turns texts into vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Config wires the service's collaborators.
type Config struct {
	Store     domain.Store
	Corpus    Corpus
	Embedder  Embedder
	Generator Generator
	// Concurrency bounds in-flight embedding batches.
	Concurrency int
	Logger      *zap.Logger
	Clock       func() time.Time
}

// Service answers questions from barangay records.
type Service struct {
	store       domain.Store
	corpus      Corpus
	embedder    Embedder
	generator   Generator
	concurrency int
	logger      *zap.Logger
	clock       func() time.Time
}

// NewService builds the assistant service.
func NewService(cfg Config) *Service {
	s := &Service{
		store:       cfg.Store,
		corpus:      cfg.Corpus,
		embedder:    cfg.Embedder,
		generator:   cfg.Generator,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		clock:       cfg.Clock,
	}
	if s.concurrency <= 0 {
		s.concurrency = 2
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return ErrNotConfigured
	}
	return nil
}

const systemPrompt = `You are the help desk assistant of a Philippine barangay hall.
Answer the resident's question using only the barangay records provided.
If the records do not contain the answer, say so plainly and suggest visiting or calling the barangay hall.
Answer in the language of the question. Keep answers short and practical.`

// Ask answers a question from the caller's barangay records.
func (s *Service) Ask(ctx context.Context, caller requestctx.Principal, question string) (domain.Answer, error) {
	if err := s.ready(); err != nil {
		return domain.Answer{}, err
	}
	if caller.UserID == "" {
		return domain.Answer{}, apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	q, err := domain.NormalizeQuestion(question)
	if err != nil {
		return domain.Answer{}, err
	}
	if s.embedder == nil || s.generator == nil {
		return domain.Answer{}, errNoProvider
	}

	vectors, err := s.embedder.Embed(ctx, []string{q})
	if err != nil || len(vectors) != 1 {
		s.logger.Error("embed question", zap.Error(err))
		return domain.Answer{}, apperrors.Wrap(apperrors.CodeUnavailable, "assistant is not available", err)
	}
	stored, err := s.store.List(ctx, caller.BarangayID)
	if err != nil {
		return domain.Answer{}, err
	}
	matches := rank(vectors[0], stored)

	answer, err := s.generator.Generate(ctx, systemPrompt, buildPrompt(q, matches))
	if err != nil {
		s.logger.Error("generate answer", zap.Error(err))
		return domain.Answer{}, apperrors.Wrap(apperrors.CodeUnavailable, "assistant is not available", err)
	}
	sources := make([]domain.Source, len(matches))
	for i, m := range matches {
		sources[i] = m.source
	}
	s.logger.Info("assistant answered",
		zap.String("barangay_id", caller.BarangayID),
		zap.Int("question_length", len([]rune(q))),
		zap.Int("sources", len(sources)))
	return domain.Answer{Answer: answer, Sources: sources}, nil
}

type match struct {
	source  domain.Source
	content string
}

// rank keeps the TopK embeddings scoring at least MinScore, best first.
func rank(query []float32, stored []domain.Embedding) []match {
	var out []match
	for _, e := range stored {
		score := domain.Cosine(query, e.Vector)
		if score < MinScore {
			continue
		}
		out = append(out, match{
			source: domain.Source{
				Kind:     e.Kind,
				SourceID: e.SourceID,
				Title:    e.Title,
				Snippet:  domain.Snippet(e.Content, 200),
				Score:    score,
			},
			content: e.Content,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].source.Score > out[j].source.Score })
	if len(out) > TopK {
		out = out[:TopK]
	}
	return out
}

func buildPrompt(question string, matches []match) string {
	var b strings.Builder
	if len(matches) == 0 {
		b.WriteString("No local barangay records matched this question.\n\n")
	} else {
		b.WriteString("Barangay records:\n")
		for i, m := range matches {
			fmt.Fprintf(&b, "[%d] (%s) %s\n%s\n\n", i+1, m.source.Kind, m.source.Title, m.content)
		}
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func requireAdmin(caller requestctx.Principal) error {
	if caller.UserID == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	}
	if !user.Role(caller.Role).AtLeast(user.RoleAdmin) {
		return apperrors.PermissionDenied("admins only")
	}
	return nil
}
