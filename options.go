package bucketry

// Option configures a Bucket.
type Option[T any] func(*Bucket[T])

// WithCodec sets a custom codec for the bucket.
// If not specified, JSONCodec is used.
func WithCodec[T any](c Codec) Option[T] {
	return func(b *Bucket[T]) {
		b.codec = c
	}
}
