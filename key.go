package bucketry

import (
	"fmt"
	"strings"
)

// BucketKey is a validated bucket identifier.
// Values outside the registry only exist if built by conversion; use
// ParseBucketKey for untrusted input.
type BucketKey string

// InvalidBucketError reports a string that is not a registered bucket identifier.
type InvalidBucketError struct {
	Value   string
	Allowed []BucketKey
}

func (e *InvalidBucketError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, k := range e.Allowed {
		allowed[i] = string(k)
	}
	return fmt.Sprintf("%v: %q (allowed: %s)", ErrInvalidBucket, e.Value, strings.Join(allowed, ", "))
}

// Unwrap returns ErrInvalidBucket.
func (*InvalidBucketError) Unwrap() error {
	return ErrInvalidBucket
}

// ParseBucketKey narrows s to a BucketKey.
// Returns an *InvalidBucketError if s is not registered.
func ParseBucketKey(s string) (BucketKey, error) {
	if _, ok := cloudBucket[BucketKey(s)]; !ok {
		return "", &InvalidBucketError{Value: s, Allowed: BucketKeys()}
	}
	return BucketKey(s), nil
}

// Valid reports whether k is a registered bucket identifier.
func (k BucketKey) Valid() bool {
	_, ok := cloudBucket[k]
	return ok
}

// String returns the identifier.
func (k BucketKey) String() string {
	return string(k)
}

// MarshalText rejects unregistered identifiers so they are never persisted.
func (k BucketKey) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, &InvalidBucketError{Value: string(k), Allowed: BucketKeys()}
	}
	return []byte(k), nil
}

// UnmarshalText validates text against the registry.
func (k *BucketKey) UnmarshalText(text []byte) error {
	parsed, err := ParseBucketKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
