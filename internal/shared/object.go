// Package shared provides canonical type definitions used across bucketry packages.
package shared //nolint:revive // internal shared package is intentional

// ObjectInfo holds provider-level metadata for a stored blob.
// Used by BucketProvider implementations.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
	ETag        string
	Metadata    map[string]string
}
