package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/services/assistant/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// BackfillAs runs Backfill for an admin. Admins are confined to their own
// barangay; a superadmin without a barangay covers all of them.
func (s *Service) BackfillAs(ctx context.Context, caller requestctx.Principal, barangayID string) (domain.BackfillResult, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.BackfillResult{}, err
	}
	barangayID = strings.TrimSpace(barangayID)
	if user.Role(caller.Role) != user.RoleSuperadmin {
		barangayID = caller.BarangayID
	}
	return s.Backfill(ctx, barangayID)
}

// Backfill embeds every document whose content changed since it was last
// embedded and drops embeddings of deleted records. An empty barangayID
// covers every barangay.
func (s *Service) Backfill(ctx context.Context, barangayID string) (domain.BackfillResult, error) {
	if err := s.ready(); err != nil {
		return domain.BackfillResult{}, err
	}
	if s.corpus == nil || s.embedder == nil {
		return domain.BackfillResult{}, errNoProvider
	}
	barangays := []string{barangayID}
	if barangayID == "" {
		var err error
		if barangays, err = s.corpus.Barangays(ctx); err != nil {
			return domain.BackfillResult{}, fmt.Errorf("list barangays: %w", err)
		}
	}
	var total domain.BackfillResult
	for _, id := range barangays {
		result, err := s.backfillOne(ctx, id)
		if err != nil {
			return total, fmt.Errorf("backfill %s: %w", id, err)
		}
		total.Add(result)
	}
	s.logger.Info("embedding backfill finished",
		zap.Int("barangays", total.Barangays),
		zap.Int("embedded", total.Embedded),
		zap.Int("unchanged", total.Unchanged),
		zap.Int("removed", total.Removed))
	return total, nil
}

func (s *Service) backfillOne(ctx context.Context, barangayID string) (domain.BackfillResult, error) {
	result := domain.BackfillResult{Barangays: 1}
	docs, err := s.corpus.Documents(ctx, barangayID)
	if err != nil {
		return result, err
	}
	hashes, err := s.store.Hashes(ctx, barangayID)
	if err != nil {
		return result, err
	}

	keep := make(map[string]bool, len(docs))
	var pending []domain.Document
	for _, d := range docs {
		keep[d.Key()] = true
		result.Scanned++
		if hashes[d.Key()] == d.Hash() {
			result.Unchanged++
			continue
		}
		pending = append(pending, d)
	}

	var (
		mu       sync.Mutex
		embedded int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for start := 0; start < len(pending); start += BatchSize {
		batch := pending[start:min(start+BatchSize, len(pending))]
		g.Go(func() error {
			n, err := s.embedBatch(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			embedded += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	result.Embedded = embedded

	removed, err := s.store.Prune(ctx, barangayID, keep)
	if err != nil {
		return result, err
	}
	result.Removed = removed
	return result, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []domain.Document) (int, error) {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.Text()
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeUnavailable, "embedding provider failed", err)
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}
	now := s.clock().UTC()
	embeddings := make([]domain.Embedding, len(batch))
	for i, d := range batch {
		embeddings[i] = domain.Embedding{Document: d, ContentHash: d.Hash(), Vector: vectors[i], UpdatedAt: now}
	}
	if err := s.store.Upsert(ctx, embeddings); err != nil {
		return 0, err
	}
	return len(batch), nil
}
