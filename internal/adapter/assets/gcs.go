package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/polkiloo/facecheck/internal/config"
)

// GCSStore keeps assets in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *slog.Logger
	now    func() time.Time
}

// NewGCSStore creates a client from the credentials file, or application default credentials when it is empty.
func NewGCSStore(ctx context.Context, cfg config.GCSConfig, logger *slog.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, logger: logger, now: time.Now}, nil
}

func (s *GCSStore) Put(ctx context.Context, slot Slot, originalName, contentType string, r io.Reader) (string, error) {
	ref := objectName(slot, originalName, s.now())
	w := s.client.Bucket(s.bucket).Object(ref).NewWriter(ctx)
	w.ContentType = contentType
	// single request upload for small files
	w.ChunkSize = 0
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s to bucket %s: %w", ref, s.bucket, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", ref, s.bucket, err)
	}
	s.logger.Debug("asset uploaded", slog.String("bucket", s.bucket), slog.String("ref", ref))
	return ref, nil
}

func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	rc, err := s.client.Bucket(s.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s from bucket %s: %w", ref, s.bucket, err)
	}
	return rc, nil
}

func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	err := s.client.Bucket(s.bucket).Object(ref).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s from bucket %s: %w", ref, s.bucket, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
