// Package source loads documents from local files, stdin or S3-compatible storage.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
)

const (
	stdinRef      = "-"
	s3Scheme      = "s3://"
	plainTextMIME = "text/plain"
)

// ObjectStore fetches objects by bucket and key.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Loader resolves a document reference to its text.
type Loader struct {
	stdin    io.Reader
	store    ObjectStore
	maxBytes int64
}

// NewLoader builds a loader. store may be nil when S3 is not configured.
func NewLoader(stdin io.Reader, store ObjectStore, maxBytes int64) *Loader {
	return &Loader{stdin: stdin, store: store, maxBytes: maxBytes}
}

// Load reads ref, which is "-" for stdin, s3://bucket/key, or a file path.
func (l *Loader) Load(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", summarizer.NewValidationError("a document path, \"-\" or s3://bucket/key is required")
	case ref == stdinRef:
		return ReadText(l.stdin, l.maxBytes)
	case strings.HasPrefix(ref, s3Scheme):
		bucket, key, err := ParseS3Ref(ref)
		if err != nil {
			return "", err
		}
		if l.store == nil {
			return "", summarizer.NewValidationError("s3 source is not configured; set source.s3.endpoint")
		}
		obj, err := l.store.Get(ctx, bucket, key)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", ref, err)
		}
		defer obj.Close()
		return ReadText(obj, l.maxBytes)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return "", fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		return ReadText(f, l.maxBytes)
	}
}

// ParseS3Ref splits s3://bucket/key.
func ParseS3Ref(ref string) (string, string, error) {
	rest := strings.TrimPrefix(ref, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", summarizer.NewValidationError(fmt.Sprintf("invalid s3 reference %q, want s3://bucket/key", ref))
	}
	return bucket, key, nil
}

// ReadText reads at most maxBytes from r and checks the content is plain text.
func ReadText(r io.Reader, maxBytes int64) (string, error) {
	reader := r
	if maxBytes > 0 {
		reader = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", summarizer.NewValidationError(fmt.Sprintf("document exceeds %d bytes", maxBytes))
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := EnsureText(data); err != nil {
		return "", err
	}
	return string(data), nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

// EnsureText accepts UTF-8 content whose detected type descends from text/plain.
func EnsureText(data []byte) error {
	data = bytes.TrimPrefix(data, utf8BOM)
	detected := mimetype.Detect(data)
	plain := false
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(plainTextMIME) {
			plain = true
			break
		}
	}
	if !plain {
		return summarizer.NewValidationError(fmt.Sprintf("unsupported content type %s; only plain text can be summarized", detected.String()))
	}
	if !utf8.Valid(data) {
		return summarizer.NewValidationError("document is not valid UTF-8")
	}
	return nil
}
