package bucketry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// ManifestName is the object, under a bundle's prefix, that records its resolved URLs.
const ManifestName = "bundle.json"

// SlotKey returns the object key holding slot for the bundle at prefix.
// Keys never start with a slash, so BucketURL serves them unchanged.
func SlotKey(prefix string, slot Slot) string {
	return objectKey(prefix, string(slot)+slot.Ext())
}

// ManifestKey returns the object key of the manifest for the bundle at prefix.
func ManifestKey(prefix string) string {
	return objectKey(prefix, ManifestName)
}

func objectKey(prefix, name string) string {
	return strings.TrimLeft(path.Join(prefix, name), "/")
}

// BeforeSave refuses to persist a manifest without a registered bucket,
// whatever codec the Bucket uses.
func (b *BucketedImageCloudBundle) BeforeSave(_ context.Context) error {
	return b.checkBucket()
}

// AfterLoad rejects manifests without a registered bucket.
func (b *BucketedImageCloudBundle) AfterLoad(_ context.Context) error {
	return b.checkBucket()
}

func (b *BucketedImageCloudBundle) checkBucket() error {
	if b.Bucket.Valid() {
		return nil
	}
	issue := Issue{Field: "bucket", Reason: IssueMissingRequired, Expected: BucketKeyPayload.Kind(), Actual: "null"}
	if b.Bucket != "" {
		issue.Reason = IssueInvalidValue
		issue.Actual = "string"
		issue.Message = (&InvalidBucketError{Value: string(b.Bucket), Allowed: BucketKeys()}).Error()
	}
	return &SchemaValidationError{Schema: BucketedImageCloudBundleSchema.Name(), Issues: []Issue{issue}}
}

// ImageStore writes and reads image bundles across mounted buckets.
// Each populated slot is stored as its own object next to a JSON manifest.
type ImageStore struct {
	resolver  *Resolver
	providers map[BucketKey]BucketProvider
}

// NewImageStore creates an ImageStore. mounts is copied; it is not consulted after return.
// A nil resolver reads the process environment.
func NewImageStore(resolver *Resolver, mounts map[BucketKey]BucketProvider) *ImageStore {
	if resolver == nil {
		resolver = defaultResolver
	}
	providers := make(map[BucketKey]BucketProvider, len(mounts))
	for k, p := range mounts {
		providers[k] = p
	}
	return &ImageStore{resolver: resolver, providers: providers}
}

func (s *ImageStore) provider(bucket BucketKey) (BucketProvider, error) {
	if !bucket.Valid() {
		return nil, &InvalidBucketError{Value: string(bucket), Allowed: BucketKeys()}
	}
	p, ok := s.providers[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMounted, bucket)
	}
	return p, nil
}

// Upload stores every populated slot of bundle under prefix in bucket and
// returns the URLs they are served from. If any write fails, slots already
// written by this call are deleted.
func (s *ImageStore) Upload(ctx context.Context, bucket BucketKey, prefix string, bundle ImageBufferBundle) (BucketedImageCloudBundle, error) {
	start := time.Now()
	out, err := s.upload(ctx, bucket, prefix, &bundle)
	if err != nil {
		capitan.Emit(ctx, UploadFailed,
			FieldBucket.Field(string(bucket)),
			FieldPrefix.Field(prefix),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return BucketedImageCloudBundle{}, err
	}
	capitan.Emit(ctx, UploadCompleted,
		FieldBucket.Field(string(bucket)),
		FieldPrefix.Field(prefix),
		FieldSlots.Field(slotNames(out.Populated())),
		FieldDuration.Field(time.Since(start)),
	)
	return out, nil
}

func (s *ImageStore) upload(ctx context.Context, bucket BucketKey, prefix string, bundle *ImageBufferBundle) (out BucketedImageCloudBundle, err error) {
	out = BucketedImageCloudBundle{Bucket: bucket}
	p, err := s.provider(bucket)
	if err != nil {
		return out, err
	}

	// A failed upload leaves no slot objects behind.
	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, key := range written {
			_ = p.Delete(ctx, key)
		}
	}()

	for _, slot := range bundle.Populated() {
		data, _ := bundle.Get(slot)
		key := SlotKey(prefix, slot)
		info := &ObjectInfo{Key: key, ContentType: slot.ContentType(), Size: int64(len(data))}
		if err := p.Put(ctx, key, data, info); err != nil {
			return out, fmt.Errorf("put %s: %w", key, err)
		}
		written = append(written, key)
		out.Set(slot, s.resolver.BucketURL(string(bucket), key))
	}
	manifest := &Object[BucketedImageCloudBundle]{Key: ManifestKey(prefix), Data: out}
	if err := NewBucket[BucketedImageCloudBundle](p).Put(ctx, manifest); err != nil {
		return out, err
	}
	return out, nil
}

// Manifest loads the URLs recorded for the bundle at prefix.
// Returns ErrNotFound if no bundle was uploaded there.
func (s *ImageStore) Manifest(ctx context.Context, bucket BucketKey, prefix string) (BucketedImageCloudBundle, error) {
	p, err := s.provider(bucket)
	if err != nil {
		return BucketedImageCloudBundle{}, err
	}
	obj, err := NewBucket[BucketedImageCloudBundle](p).Get(ctx, ManifestKey(prefix))
	if err != nil {
		return BucketedImageCloudBundle{}, err
	}
	return obj.Data, nil
}

// Fetch downloads the slots recorded in the manifest at prefix.
func (s *ImageStore) Fetch(ctx context.Context, bucket BucketKey, prefix string) (ImageBufferBundle, error) {
	start := time.Now()
	out, err := s.fetch(ctx, bucket, prefix)
	if err != nil {
		capitan.Emit(ctx, FetchFailed,
			FieldBucket.Field(string(bucket)),
			FieldPrefix.Field(prefix),
			FieldError.Field(err),
			FieldDuration.Field(time.Since(start)),
		)
		return ImageBufferBundle{}, err
	}
	capitan.Emit(ctx, FetchCompleted,
		FieldBucket.Field(string(bucket)),
		FieldPrefix.Field(prefix),
		FieldSlots.Field(slotNames(out.Populated())),
		FieldDuration.Field(time.Since(start)),
	)
	return out, nil
}

func (s *ImageStore) fetch(ctx context.Context, bucket BucketKey, prefix string) (ImageBufferBundle, error) {
	var out ImageBufferBundle
	manifest, err := s.Manifest(ctx, bucket, prefix)
	if err != nil {
		return out, err
	}
	p, err := s.provider(bucket)
	if err != nil {
		return out, err
	}
	for _, slot := range manifest.Populated() {
		key := SlotKey(prefix, slot)
		data, _, err := p.Get(ctx, key)
		if err != nil {
			return out, fmt.Errorf("get %s: %w", key, err)
		}
		out.Set(slot, data)
	}
	return out, nil
}

// Delete removes the slots and manifest of the bundle at prefix.
// Slot objects already missing are ignored.
func (s *ImageStore) Delete(ctx context.Context, bucket BucketKey, prefix string) error {
	manifest, err := s.Manifest(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	p, err := s.provider(bucket)
	if err != nil {
		return err
	}
	for _, slot := range manifest.Populated() {
		key := SlotKey(prefix, slot)
		if err := p.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return NewBucket[BucketedImageCloudBundle](p).Delete(ctx, ManifestKey(prefix))
}

func slotNames(s []Slot) []string {
	out := make([]string, len(s))
	for i, slot := range s {
		out[i] = string(slot)
	}
	return out
}
