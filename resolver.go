package bucketry

import "strings"

// URL prefixes produced by the resolver.
const (
	LocalBucketsPrefix = "/buckets/"
	StorageURLPrefix   = "https://storage.cloud.google.com/"
	LocalPublicDir     = "./public"
)

// Resolver turns bucket/path pairs into retrieval URLs.
// It holds no state besides its Env and is safe for concurrent use.
type Resolver struct {
	env Env
}

// NewResolver creates a Resolver reading local-disk mode from env.
// A nil env reads the process environment.
func NewResolver(env Env) *Resolver {
	if env == nil {
		env = NewViperEnv(nil)
	}
	return &Resolver{env: env}
}

// URLOption adjusts a single BucketURL call.
type URLOption func(*urlOptions)

type urlOptions struct {
	useCDN bool
}

// WithoutCDN skips the bucket's CDN domain and addresses storage directly.
func WithoutCDN() URLOption {
	return func(o *urlOptions) {
		o.useCDN = false
	}
}

// BucketURL returns the URL serving path from bucket.
// bucket is not validated: unknown names fall through to a direct storage URL.
func (r *Resolver) BucketURL(bucket, path string, opts ...URLOption) string {
	o := urlOptions{useCDN: true}
	for _, opt := range opts {
		opt(&o)
	}

	path = stripLeadingSlash(path)
	if r.env.LocalDisk() {
		return LocalBucketsPrefix + bucket + "/" + path
	}

	entry, _ := LookupBucket(bucket)
	if entry.CDNDomain != "" && o.useCDN {
		return "https://" + entry.CDNDomain + "/" + path
	}
	if entry.RealBucketName != "" {
		bucket = entry.RealBucketName
	}
	return StorageURLPrefix + bucket + "/" + path
}

// LocalPath maps bucket and path to a path under ./public.
func (r *Resolver) LocalPath(bucket BucketKey, path string) string {
	return LocalPublicDir + r.BucketURL(string(bucket), path)
}

// LocalDisk reports whether the resolver is currently in local-disk mode.
func (r *Resolver) LocalDisk() bool {
	return r.env.LocalDisk()
}

// RealBucketName returns the backing bucket for name, or name itself.
func RealBucketName(name string) string {
	if entry, ok := LookupBucket(name); ok && entry.RealBucketName != "" {
		return entry.RealBucketName
	}
	return name
}

var defaultResolver = NewResolver(nil)

// BucketURL resolves against the process environment.
func BucketURL(bucket, path string, opts ...URLOption) string {
	return defaultResolver.BucketURL(bucket, path, opts...)
}

// LocalPath resolves against the process environment.
func LocalPath(bucket BucketKey, path string) string {
	return defaultResolver.LocalPath(bucket, path)
}

// stripLeadingSlash removes at most one leading slash.
func stripLeadingSlash(path string) string {
	return strings.TrimPrefix(path, "/")
}
