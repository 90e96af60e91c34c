package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/assistant/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	registrydomain "github.com/louisbranch/baranex/internal/services/registry/domain"
)

// Corpus yields the documents a barangay's assistant may cite.
type Corpus interface {
	Barangays(ctx context.Context) ([]string, error)
	Documents(ctx context.Context, barangayID string) ([]domain.Document, error)
}

// Registry is the part of the registry service the corpus reads.
type Registry interface {
	ListBarangays(ctx context.Context) ([]registrydomain.Barangay, error)
	ListAnnouncements(ctx context.Context, caller requestctx.Principal, q registrydomain.ListQuery) (listing.Page[registrydomain.Announcement], error)
	ListOfficials(ctx context.Context, caller requestctx.Principal, q registrydomain.ListQuery) (listing.Page[registrydomain.Official], error)
	ListThreads(ctx context.Context, caller requestctx.Principal, q registrydomain.ListQuery) (listing.Page[registrydomain.ForumThread], error)
	DocumentCatalog() []registrydomain.DocumentTypeInfo
}

// RegistryCorpus reads what a resident of the barangay can see.
type RegistryCorpus struct {
	Registry Registry
}

// Barangays lists every barangay id.
func (c RegistryCorpus) Barangays(ctx context.Context) ([]string, error) {
	barangays, err := c.Registry.ListBarangays(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(barangays))
	for i, b := range barangays {
		ids[i] = b.ID
	}
	return ids, nil
}

// Documents collects visible announcements, active officials, forum threads
// and the document catalog.
func (c RegistryCorpus) Documents(ctx context.Context, barangayID string) ([]domain.Document, error) {
	reader := requestctx.Principal{UserID: "assistant", Role: string(user.RoleResident), BarangayID: barangayID}
	var docs []domain.Document

	announcements, err := drain(ctx, reader, c.Registry.ListAnnouncements)
	if err != nil {
		return nil, fmt.Errorf("collect announcements: %w", err)
	}
	for _, a := range announcements {
		docs = append(docs, domain.Document{
			BarangayID: barangayID, Kind: domain.KindAnnouncement, SourceID: a.ID,
			Title: a.Title, Content: a.Body,
		})
	}

	officials, err := drain(ctx, reader, c.Registry.ListOfficials)
	if err != nil {
		return nil, fmt.Errorf("collect officials: %w", err)
	}
	for _, o := range officials {
		if !o.Active {
			continue
		}
		content := fmt.Sprintf("%s serves as %s.", o.Name, positionLabel(o.Position))
		if o.Committee != "" {
			content += " Committee: " + o.Committee + "."
		}
		if o.TermStart != "" || o.TermEnd != "" {
			content += fmt.Sprintf(" Term: %s to %s.", orDash(o.TermStart), orDash(o.TermEnd))
		}
		docs = append(docs, domain.Document{
			BarangayID: barangayID, Kind: domain.KindOfficial, SourceID: o.ID,
			Title: o.Name, Content: content,
		})
	}

	threads, err := drain(ctx, reader, c.Registry.ListThreads)
	if err != nil {
		return nil, fmt.Errorf("collect forum threads: %w", err)
	}
	for _, t := range threads {
		docs = append(docs, domain.Document{
			BarangayID: barangayID, Kind: domain.KindThread, SourceID: t.ID,
			Title: t.Title, Content: t.Body,
		})
	}

	for _, info := range c.Registry.DocumentCatalog() {
		content := info.Description
		if len(info.Requirements) > 0 {
			content += " Requirements: " + strings.Join(info.Requirements, "; ") + "."
		}
		docs = append(docs, domain.Document{
			BarangayID: barangayID, Kind: domain.KindDocumentType, SourceID: string(info.Type),
			Title: info.Name, Content: content,
		})
	}
	return docs, nil
}

type lister[T any] func(context.Context, requestctx.Principal, registrydomain.ListQuery) (listing.Page[T], error)

// drain reads every page of a listing.
func drain[T any](ctx context.Context, caller requestctx.Principal, list lister[T]) ([]T, error) {
	var (
		out   []T
		token string
	)
	for {
		page, err := list(ctx, caller, registrydomain.ListQuery{PageSize: 200, PageToken: token})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

func positionLabel(p registrydomain.Position) string {
	return strings.ReplaceAll(string(p), "_", " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
