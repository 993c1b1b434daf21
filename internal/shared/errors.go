// Package shared contains canonical type definitions shared across bucketry.
package shared //nolint:revive // internal shared package is intentional

import "errors"

// Semantic errors for bucket and schema operations.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("bucketry: object not found")

	// ErrInvalidKey indicates the provided object key is malformed or empty.
	ErrInvalidKey = errors.New("bucketry: invalid key")

	// ErrInvalidBucket indicates a string outside the registered bucket identifiers.
	ErrInvalidBucket = errors.New("bucketry: invalid bucket identifier")

	// ErrSchema indicates a value did not match an image bundle shape.
	ErrSchema = errors.New("bucketry: schema validation failed")

	// ErrPayloadKind indicates a field value has the wrong kind for its payload.
	ErrPayloadKind = errors.New("bucketry: wrong payload kind")

	// ErrEncode indicates a payload could not be serialized.
	ErrEncode = errors.New("bucketry: encode failed")

	// ErrDecode indicates a payload could not be deserialized.
	ErrDecode = errors.New("bucketry: decode failed")

	// ErrNotMounted indicates no provider is mounted for a bucket.
	ErrNotMounted = errors.New("bucketry: bucket not mounted")
)
