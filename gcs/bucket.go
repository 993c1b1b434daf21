// Package gcs provides a bucketry BucketProvider implementation for Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/zoobzio/bucketry"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Provider implements bucketry.BucketProvider for Google Cloud Storage.
type Provider struct {
	client *storage.Client
	bucket string
}

// New creates a GCS provider with the given client and backing bucket name.
func New(client *storage.Client, bucket string) *Provider {
	return &Provider{
		client: client,
		bucket: bucket,
	}
}

// ForBucket creates a provider for a registered bucket, addressing its real
// backing bucket when the registry overrides the name.
func ForBucket(client *storage.Client, key bucketry.BucketKey) *Provider {
	return New(client, bucketry.RealBucketName(string(key)))
}

// NewClient creates a storage client. A non-empty endpoint targets an
// emulator such as fake-gcs-server without authentication.
func NewClient(ctx context.Context, endpoint string) (*storage.Client, error) {
	if endpoint == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx,
		option.WithEndpoint(endpoint),
		option.WithoutAuthentication(),
	)
}

// Bucket returns the backing bucket name.
func (p *Provider) Bucket() string {
	return p.bucket
}

// Get retrieves the blob at key.
func (p *Provider) Get(ctx context.Context, key string) ([]byte, *bucketry.ObjectInfo, error) {
	obj := p.client.Bucket(p.bucket).Object(key)

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil, bucketry.ErrNotFound
		}
		return nil, nil, err
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, err
	}

	return data, objectInfo(attrs), nil
}

// Put stores data at key with associated metadata.
func (p *Provider) Put(ctx context.Context, key string, data []byte, info *bucketry.ObjectInfo) error {
	writer := p.client.Bucket(p.bucket).Object(key).NewWriter(ctx)

	if info != nil {
		if info.ContentType != "" {
			writer.ContentType = info.ContentType
		}
		if len(info.Metadata) > 0 {
			writer.Metadata = info.Metadata
		}
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return err
	}

	return writer.Close()
}

// Delete removes the blob at key.
func (p *Provider) Delete(ctx context.Context, key string) error {
	err := p.client.Bucket(p.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return bucketry.ErrNotFound
		}
		return err
	}
	return nil
}

// Exists checks whether a key exists.
func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.Bucket(p.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns object info for keys matching the given prefix.
func (p *Provider) List(ctx context.Context, prefix string, limit int) ([]bucketry.ObjectInfo, error) {
	var results []bucketry.ObjectInfo

	it := p.client.Bucket(p.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}

		results = append(results, *objectInfo(attrs))

		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

func objectInfo(attrs *storage.ObjectAttrs) *bucketry.ObjectInfo {
	return &bucketry.ObjectInfo{
		Key:         attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		Metadata:    attrs.Metadata,
	}
}

// Ensure Provider implements bucketry.BucketProvider.
var _ bucketry.BucketProvider = (*Provider)(nil)
