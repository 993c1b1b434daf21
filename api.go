// Package bucketry maps logical storage-bucket identifiers to retrievable URLs
// and defines validated shapes for image asset bundles stored across buckets.
// Providers store blobs; the registry decides where those blobs are served from.
package bucketry

import (
	"context"

	"github.com/zoobzio/bucketry/internal/shared"
)

// Semantic errors (re-exported from internal/shared).
var (
	ErrNotFound      = shared.ErrNotFound
	ErrInvalidKey    = shared.ErrInvalidKey
	ErrInvalidBucket = shared.ErrInvalidBucket
	ErrSchema        = shared.ErrSchema
	ErrPayloadKind   = shared.ErrPayloadKind
	ErrEncode        = shared.ErrEncode
	ErrDecode        = shared.ErrDecode
	ErrNotMounted    = shared.ErrNotMounted
)

// ObjectInfo is re-exported from internal/shared for the public API.
type ObjectInfo = shared.ObjectInfo

// BucketProvider defines raw blob storage operations.
// Implementations (gcs, local) satisfy this interface.
type BucketProvider interface {
	// Get retrieves the blob at key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, *ObjectInfo, error)

	// Put stores data at key with associated metadata.
	Put(ctx context.Context, key string, data []byte, info *ObjectInfo) error

	// Delete removes the blob at key.
	// Returns ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns object info for keys matching the given prefix.
	// Limit of 0 means no limit.
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
}
