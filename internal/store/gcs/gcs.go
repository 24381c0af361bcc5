// Package gcs persists report tables as JSON objects in a Google Cloud
// Storage bucket, one object per table name.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/siteproof/linkaudit/internal/report"
	reportstore "github.com/siteproof/linkaudit/internal/store"
)

// Store implements store.ReportStore on a GCS bucket. Authentication uses
// Application Default Credentials.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates the client and verifies the bucket is reachable, failing fast
// on misconfiguration.
func New(ctx context.Context, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("check gcs bucket %q: %w", bucket, err)
	}
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name + ".json"
	}
	return s.prefix + "/" + name + ".json"
}

// Save implements store.ReportStore; the object is replaced atomically on
// Close.
func (s *Store) Save(ctx context.Context, name string, t report.Table) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode report table %q: %w", name, err)
	}
	w := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("write report table %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize report table %q: %w", name, err)
	}
	return nil
}

// Load implements store.ReportStore.
func (s *Store) Load(ctx context.Context, name string) (report.Table, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return report.Table{}, reportstore.ErrNotFound
	}
	if err != nil {
		return report.Table{}, fmt.Errorf("open report table %q: %w", name, err)
	}
	defer r.Close() //nolint:errcheck

	payload, err := io.ReadAll(r)
	if err != nil {
		return report.Table{}, fmt.Errorf("read report table %q: %w", name, err)
	}
	var t report.Table
	if err := json.Unmarshal(payload, &t); err != nil {
		return report.Table{}, fmt.Errorf("decode report table %q: %w", name, err)
	}
	return t, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
