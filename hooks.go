package bucketry

import "context"

// Payload types opt into Bucket lifecycle checks by implementing any of
// the interfaces below on their pointer receiver. BucketedImageCloudBundle
// uses BeforeSave and AfterLoad to keep unregistered buckets out of stored
// manifests.

// BeforeSave runs before the payload is encoded. An error aborts the Put
// and nothing reaches the provider.
type BeforeSave interface {
	BeforeSave(ctx context.Context) error
}

// AfterSave runs once the provider accepted the write.
type AfterSave interface {
	AfterSave(ctx context.Context) error
}

// AfterLoad runs on a freshly decoded payload. An error discards it.
type AfterLoad interface {
	AfterLoad(ctx context.Context) error
}

// BeforeDelete and AfterDelete run on a zero T; Delete never loads the
// object it removes.
type BeforeDelete interface {
	BeforeDelete(ctx context.Context) error
}

// AfterDelete runs after the provider removed the object.
type AfterDelete interface {
	AfterDelete(ctx context.Context) error
}

// dispatch calls fn if v implements H.
func dispatch[H any](v any, fn func(H) error) error {
	h, ok := v.(H)
	if !ok {
		return nil
	}
	return fn(h)
}

func callBeforeSave[T any](ctx context.Context, v *T) error {
	return dispatch(any(v), func(h BeforeSave) error { return h.BeforeSave(ctx) })
}

func callAfterSave[T any](ctx context.Context, v *T) error {
	return dispatch(any(v), func(h AfterSave) error { return h.AfterSave(ctx) })
}

func callAfterLoad[T any](ctx context.Context, v *T) error {
	return dispatch(any(v), func(h AfterLoad) error { return h.AfterLoad(ctx) })
}

func callBeforeDelete[T any](ctx context.Context) error {
	return dispatch(any(new(T)), func(h BeforeDelete) error { return h.BeforeDelete(ctx) })
}

func callAfterDelete[T any](ctx context.Context) error {
	return dispatch(any(new(T)), func(h AfterDelete) error { return h.AfterDelete(ctx) })
}
