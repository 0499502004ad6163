package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chatdesk/internal/store"
)

// Archiver keeps a copy of each generated export in an object-storage
// bucket. Archival is best effort: failures are reported to the caller for
// logging but never block the download itself.
type Archiver struct {
	client *minio.Client
	bucket string
}

func NewArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}
	return &Archiver{client: client, bucket: bucket}, nil
}

// Archive stores the rendered CSV under a tenant- and time-prefixed key.
func (a *Archiver) Archive(ctx context.Context, tenant store.Tenant, result *Result) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%s/%s", tenant, time.Now().UTC().Format("2006-01-02"), result.Filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(result.Data), int64(len(result.Data)), minio.PutObjectOptions{
		ContentType: result.ContentType,
	})
	if err != nil {
		return fmt.Errorf("archive export %s: %w", key, err)
	}
	return nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}
