package bucketry

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/sentinel"
)

// Bucket provides typed object storage for T over a BucketProvider.
// Payloads are serialized with the bucket's codec; lifecycle hooks on *T run
// around reads and writes.
type Bucket[T any] struct {
	provider BucketProvider
	codec    Codec
	key      capitan.GenericKey[T]
	metadata sentinel.Metadata
}

// NewBucket creates a Bucket for type T backed by the given provider.
// Uses JSONCodec by default; override with WithCodec.
func NewBucket[T any](provider BucketProvider, opts ...Option[T]) *Bucket[T] {
	meta := sentinel.Inspect[T]()
	variant := capitan.Variant(meta.PackageName + "." + meta.TypeName)

	b := &Bucket[T]{
		provider: provider,
		codec:    JSONCodec{},
		key:      capitan.NewKey[T]("object", variant),
		metadata: meta,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.codec == nil {
		b.codec = JSONCodec{}
	}

	return b
}

// Key returns the capitan key for extracting T from events.
func (b *Bucket[T]) Key() capitan.GenericKey[T] {
	return b.key
}

// Metadata returns the sentinel metadata for type T.
func (b *Bucket[T]) Metadata() sentinel.Metadata {
	return b.metadata
}

// Get retrieves the object at key.
// Returns ErrNotFound if the key does not exist.
func (b *Bucket[T]) Get(ctx context.Context, key string) (*Object[T], error) {
	start := time.Now()
	capitan.Emit(ctx, GetStarted, FieldKey.Field(key))

	obj, err := b.get(ctx, key)
	if err != nil {
		capitan.Emit(ctx, GetFailed,
			FieldKey.Field(key),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return nil, err
	}

	capitan.Emit(ctx, GetCompleted,
		FieldKey.Field(key),
		FieldSize.Field(obj.Size),
		FieldDuration.Field(time.Since(start)),
		b.key.Field(obj.Data),
	)
	return obj, nil
}

func (b *Bucket[T]) get(ctx context.Context, key string) (*Object[T], error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	data, info, err := b.provider.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var payload T
	if err := b.codec.Decode(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := callAfterLoad(ctx, &payload); err != nil {
		return nil, err
	}
	if info == nil {
		info = &ObjectInfo{Key: key, Size: int64(len(data))}
	}
	return &Object[T]{
		Key:         info.Key,
		ContentType: info.ContentType,
		Size:        info.Size,
		ETag:        info.ETag,
		Metadata:    info.Metadata,
		Data:        payload,
	}, nil
}

// Put stores obj at obj.Key.
// An empty ContentType is filled from the codec.
func (b *Bucket[T]) Put(ctx context.Context, obj *Object[T]) error {
	if obj == nil || obj.Key == "" {
		return ErrInvalidKey
	}
	start := time.Now()
	capitan.Emit(ctx, PutStarted, FieldKey.Field(obj.Key))

	size, err := b.put(ctx, obj)
	if err != nil {
		capitan.Emit(ctx, PutFailed,
			FieldKey.Field(obj.Key),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return err
	}

	capitan.Emit(ctx, PutCompleted,
		FieldKey.Field(obj.Key),
		FieldSize.Field(size),
		FieldDuration.Field(time.Since(start)),
		b.key.Field(obj.Data),
	)
	return nil
}

func (b *Bucket[T]) put(ctx context.Context, obj *Object[T]) (int64, error) {
	if err := callBeforeSave(ctx, &obj.Data); err != nil {
		return 0, err
	}
	data, err := b.codec.Encode(obj.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = b.codec.ContentType()
	}
	info := &ObjectInfo{
		Key:         obj.Key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Metadata:    obj.Metadata,
	}
	if err := b.provider.Put(ctx, obj.Key, data, info); err != nil {
		return 0, err
	}
	return info.Size, callAfterSave(ctx, &obj.Data)
}

// Delete removes the object at key.
// Returns ErrNotFound if the key does not exist.
func (b *Bucket[T]) Delete(ctx context.Context, key string) error {
	start := time.Now()
	capitan.Emit(ctx, DeleteStarted, FieldKey.Field(key))

	err := callBeforeDelete[T](ctx)
	if err == nil {
		err = b.provider.Delete(ctx, key)
	}
	if err == nil {
		err = callAfterDelete[T](ctx)
	}
	if err != nil {
		capitan.Emit(ctx, DeleteFailed,
			FieldKey.Field(key),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return err
	}

	capitan.Emit(ctx, DeleteCompleted,
		FieldKey.Field(key),
		FieldDuration.Field(time.Since(start)),
	)
	return nil
}

// Exists checks whether a key exists.
func (b *Bucket[T]) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	exists, err := b.provider.Exists(ctx, key)
	if err != nil {
		return false, err
	}

	capitan.Emit(ctx, ExistsCompleted,
		FieldKey.Field(key),
		FieldExists.Field(exists),
		FieldDuration.Field(time.Since(start)),
	)
	return exists, nil
}

// List returns object info for keys matching the given prefix.
// Limit of 0 means no limit.
func (b *Bucket[T]) List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	start := time.Now()

	infos, err := b.provider.List(ctx, prefix, limit)
	if err != nil {
		return nil, err
	}

	capitan.Emit(ctx, ListCompleted,
		FieldPrefix.Field(prefix),
		FieldLimit.Field(limit),
		FieldCount.Field(len(infos)),
		FieldDuration.Field(time.Since(start)),
	)
	return infos, nil
}
