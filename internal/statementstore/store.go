// Package statementstore loads extracted-statement JSON produced by the
// extraction collaborator, either from the GCS bucket it drops results into
// or from a local file for CLI use.
package statementstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Motta-Financial/statement-audit/internal/model"
)

// Loader fetches one extracted statement by URI.
type Loader interface {
	Load(ctx context.Context, uri string) (*model.Statement, error)
}

// DecodeStatement parses statement JSON in the shape the extraction
// collaborator emits (see model.Statement).
func DecodeStatement(data []byte) (*model.Statement, error) {
	var s model.Statement
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("DecodeStatement: unmarshal: %w", err)
	}
	return &s, nil
}

// ParseGCSURI splits gs://bucket/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", "", fmt.Errorf("ParseGCSURI: %q is not a gs:// URI", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ParseGCSURI: %q has no object path", uri)
	}
	return parts[0], parts[1], nil
}

// GCSLoader loads statements from Google Cloud Storage. It assumes
// Application Default Credentials are configured.
type GCSLoader struct{}

// NewGCSLoader creates a GCS-backed loader.
func NewGCSLoader() *GCSLoader {
	return &GCSLoader{}
}

// Load implements Loader for gs:// URIs.
func (l *GCSLoader) Load(ctx context.Context, uri string) (*model.Statement, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: open object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Load: read object: %w", err)
	}

	return DecodeStatement(data)
}

// FileLoader loads statements from the local filesystem.
type FileLoader struct{}

// NewFileLoader creates a file-backed loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load implements Loader for local paths.
func (l *FileLoader) Load(ctx context.Context, path string) (*model.Statement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: read file %q: %w", path, err)
	}
	return DecodeStatement(data)
}

// ForURI picks the right loader for the URI scheme.
func ForURI(uri string) Loader {
	if strings.HasPrefix(uri, "gs://") {
		return NewGCSLoader()
	}
	return NewFileLoader()
}
