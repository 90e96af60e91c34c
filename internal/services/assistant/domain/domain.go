// Package domain defines the assistant's knowledge records and vector math.
package domain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
)

// Kind is the registry collection a document came from.
type Kind string

const (
	KindAnnouncement Kind = "announcement"
	KindOfficial     Kind = "official"
	KindThread       Kind = "forum_thread"
	KindDocumentType Kind = "document_type"
)

// Question length bounds in characters.
const (
	MinQuestionLength = 3
	MaxQuestionLength = 500
)

// Document is one searchable record.
type Document struct {
	BarangayID string
	Kind       Kind
	SourceID   string
	Title      string
	Content    string
}

// Key identifies a document within its barangay.
func (d Document) Key() string {
	return string(d.Kind) + ":" + d.SourceID
}

// Hash fingerprints the embedded text.
func (d Document) Hash() string {
	sum := sha256.Sum256([]byte(d.Title + "\n" + d.Content))
	return hex.EncodeToString(sum[:])
}

// Text is what gets embedded.
func (d Document) Text() string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n\n" + d.Content
}

// Embedding is a stored document vector.
type Embedding struct {
	Document
	ContentHash string
	Vector      []float32
	UpdatedAt   time.Time
}

// Source is an answer citation.
type Source struct {
	Kind     Kind    `json:"kind"`
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// Answer is the assistant's reply.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// BackfillResult counts what a backfill did.
type BackfillResult struct {
	Barangays int `json:"barangays"`
	Scanned   int `json:"scanned"`
	Embedded  int `json:"embedded"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// Add accumulates other into r.
func (r *BackfillResult) Add(other BackfillResult) {
	r.Barangays += other.Barangays
	r.Scanned += other.Scanned
	r.Embedded += other.Embedded
	r.Unchanged += other.Unchanged
	r.Removed += other.Removed
}

// Store persists embeddings.
type Store interface {
	// Hashes maps document keys to stored content hashes.
	Hashes(ctx context.Context, barangayID string) (map[string]string, error)
	Upsert(ctx context.Context, embeddings []Embedding) error
	List(ctx context.Context, barangayID string) ([]Embedding, error)
	// Prune deletes the barangay's embeddings whose key is not in keep and
	// returns how many were removed.
	Prune(ctx context.Context, barangayID string, keep map[string]bool) (int, error)
}

// NormalizeQuestion trims a question and checks its length.
func NormalizeQuestion(raw string) (string, error) {
	q := strings.Join(strings.Fields(raw), " ")
	n := utf8.RuneCountInString(q)
	if n < MinQuestionLength || n > MaxQuestionLength {
		return "", apperrors.InvalidArgument(fmt.Sprintf("question must be %d to %d characters", MinQuestionLength, MaxQuestionLength))
	}
	return q, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when their lengths
// differ or either is a zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeVector packs v as little-endian float32s.
func EncodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// DecodeVector unpacks EncodeVector output.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Snippet shortens s to at most n characters on a word boundary.
func Snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
