package bucketry

// Object wraps payload T with blob metadata.
type Object[T any] struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	ETag        string            `json:"etag,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Data        T                 `json:"data"`
}
