package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/finsights-backend/internal/config"
	"github.com/yungbote/finsights-backend/internal/platform/logger"
)

type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewGCSStore deletes artifacts stored under pdf/, text/ and insights/ in one bucket.
func NewGCSStore(ctx context.Context, cfg config.ArtifactsConfig, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	bucket := strings.TrimSpace(cfg.GCSBucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing artifact bucket")
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "GCSArtifactStore")
	serviceLog.Info("Artifact storage initialized",
		"bucket", bucket,
		"emulator_host", cfg.GCSEmulatorHost,
	)
	return &gcsStore{log: serviceLog, client: client, bucket: bucket}, nil
}

func newStorageClient(ctx context.Context, cfg config.ArtifactsConfig) (*storage.Client, error) {
	if host := strings.TrimRight(strings.TrimSpace(cfg.GCSEmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := clientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func objectKey(ref Ref) (string, error) {
	name, err := cleanName(ref.Name)
	if err != nil {
		return "", err
	}
	switch ref.Kind {
	case KindPDF, KindText, KindInsights:
		return string(ref.Kind) + "/" + name, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", ref.Kind)
	}
}

func (s *gcsStore) Delete(ctx context.Context, ref Ref) error {
	key, err := objectKey(ref)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.log.Debug("artifact already gone", "key", key)
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
