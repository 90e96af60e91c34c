// Package objectstore keeps uploaded images and ID scans on the local
// filesystem, grouped into buckets.
package objectstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
)

// DefaultMaxSize is the default upload cap (5 MiB).
const DefaultMaxSize int64 = 5 << 20

// Bucket names a group of objects.
type Bucket string

const (
	BucketAvatars     Bucket = "avatars"
	BucketCovers      Bucket = "covers"
	BucketIDScans     Bucket = "id-scans"
	BucketBackgrounds Bucket = "backgrounds"
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

var (
	ownerPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)
	keyPattern   = regexp.MustCompile(`^[a-z0-9-]{1,64}/[a-z0-9]{1,64}\.(jpg|png|webp|gif|pdf)$`)
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ParseBucket validates a bucket name.
func ParseBucket(name string) (Bucket, error) {
	switch b := Bucket(strings.TrimSpace(name)); b {
	case BucketAvatars, BucketCovers, BucketIDScans, BucketBackgrounds:
		return b, nil
	default:
		return "", apperrors.InvalidArgument(fmt.Sprintf("unknown bucket %q", name))
	}
}

// extensionFor returns the file extension for an allowed content type.
func (b Bucket) extensionFor(contentType string) (string, bool) {
	if ext, ok := imageTypes[contentType]; ok {
		return ext, true
	}
	if b == BucketIDScans && contentType == "application/pdf" {
		return ".pdf", true
	}
	return "", false
}

// Object describes a stored object.
type Object struct {
	Bucket      Bucket `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is a bucketed filesystem object store rooted at a directory.
type Store struct {
	root    string
	maxSize int64
	newID   func() (string, error)
}

// Open prepares a store rooted at dir, creating the bucket directories.
func Open(dir string, maxSize int64) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("object storage dir is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	for _, b := range []Bucket{BucketAvatars, BucketCovers, BucketIDScans, BucketBackgrounds} {
		if err := os.MkdirAll(filepath.Join(dir, string(b)), 0o750); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
	}
	return &Store{root: dir, maxSize: maxSize, newID: id.NewID}, nil
}

// MaxSize reports the upload cap in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Put stores r under bucket as <owner>/<id><ext>. The content type is
// sniffed from the data and must be allowed for the bucket.
func (s *Store) Put(ctx context.Context, bucket Bucket, owner string, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if _, err := ParseBucket(string(bucket)); err != nil {
		return Object{}, err
	}
	if !ownerPattern.MatchString(owner) {
		return Object{}, apperrors.InvalidArgument("invalid object owner")
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Object{}, fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return Object{}, apperrors.InvalidArgument("file is empty")
	}
	contentType, _, _ := strings.Cut(http.DetectContentType(head), ";")
	ext, ok := bucket.extensionFor(contentType)
	if !ok {
		return Object{}, apperrors.New(apperrors.CodeUnsupportedType,
			fmt.Sprintf("content type %s is not allowed in %s", contentType, bucket))
	}

	objectID, err := s.newID()
	if err != nil {
		return Object{}, err
	}
	key := owner + "/" + objectID + ext
	dir := filepath.Join(s.root, string(bucket), owner)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Object{}, fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp object: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	written, err := io.Copy(tmp, io.LimitReader(br, s.maxSize+1))
	closeErr := tmp.Close()
	if err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	if closeErr != nil {
		return Object{}, fmt.Errorf("close object: %w", closeErr)
	}
	if written > s.maxSize {
		return Object{}, apperrors.New(apperrors.CodePayloadTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, string(bucket), filepath.FromSlash(key))); err != nil {
		return Object{}, fmt.Errorf("commit object: %w", err)
	}
	return Object{Bucket: bucket, Key: key, ContentType: contentType, Size: written}, nil
}

// Open returns a reader for a stored object. The caller closes it.
func (s *Store) Open(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	path, err := s.path(bucket, key)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, Object{}, ErrNotFound
	}
	if err != nil {
		return nil, Object{}, fmt.Errorf("open object: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, fmt.Errorf("stat object: %w", err)
	}
	return f, Object{
		Bucket:      bucket,
		Key:         key,
		ContentType: extTypes[filepath.Ext(key)],
		Size:        info.Size(),
	}, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, bucket Bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Owner returns the owner segment of a key.
func Owner(key string) string {
	owner, _, _ := strings.Cut(key, "/")
	return owner
}

func (s *Store) path(bucket Bucket, key string) (string, error) {
	if _, err := ParseBucket(string(bucket)); err != nil {
		return "", err
	}
	if !keyPattern.MatchString(key) {
		return "", apperrors.InvalidArgument("invalid object key")
	}
	return filepath.Join(s.root, string(bucket), filepath.FromSlash(key)), nil
}
