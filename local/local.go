// Package local provides a bucketry BucketProvider backed by the local filesystem.
// It mirrors the layout that local-disk emulation URLs point at:
// {publicDir}/buckets/{bucket}/{key}.
package local

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/zoobzio/bucketry"
)

// File modes for stored objects and their directories.
const (
	FileModeForFiles os.FileMode = 0o644
	FileModeForDirs  os.FileMode = 0o755
)

// Provider implements bucketry.BucketProvider over a directory.
type Provider struct {
	root string
}

// New creates a provider storing objects under root.
func New(root string) *Provider {
	return &Provider{root: filepath.Clean(root)}
}

// ForBucket creates a provider for bucket under publicDir, matching
// the paths produced by bucketry.LocalPath.
func ForBucket(publicDir string, bucket bucketry.BucketKey) *Provider {
	return New(filepath.Join(publicDir, strings.TrimPrefix(bucketry.LocalBucketsPrefix, "/"), string(bucket)))
}

// Root returns the directory objects are stored under.
func (p *Provider) Root() string {
	return p.root
}

// filePath maps key to a file under root, rejecting keys that escape it.
func (p *Provider) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" {
		return "", bucketry.ErrInvalidKey
	}
	return filepath.Join(p.root, filepath.FromSlash(clean[1:])), nil
}

func (p *Provider) info(key string, size int64) *bucketry.ObjectInfo {
	return &bucketry.ObjectInfo{
		Key:         key,
		ContentType: mime.TypeByExtension(path.Ext(key)),
		Size:        size,
	}
}

// Get retrieves the blob at key.
func (p *Provider) Get(_ context.Context, key string) ([]byte, *bucketry.ObjectInfo, error) {
	file, err := p.filePath(key)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, bucketry.ErrNotFound
		}
		return nil, nil, err
	}
	return data, p.info(key, int64(len(data))), nil
}

// Put stores data at key, replacing any existing file atomically.
// Only the payload is persisted; info metadata is not.
func (p *Provider) Put(_ context.Context, key string, data []byte, _ *bucketry.ObjectInfo) error {
	file, err := p.filePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), FileModeForDirs); err != nil {
		return err
	}
	return renameio.WriteFile(file, data, FileModeForFiles)
}

// Delete removes the blob at key.
func (p *Provider) Delete(_ context.Context, key string) error {
	file, err := p.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return bucketry.ErrNotFound
		}
		return err
	}
	return nil
}

// Exists checks whether a key exists.
func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	file, err := p.filePath(key)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !st.IsDir(), nil
}

// List returns object info for keys matching the given prefix, in lexical order.
// Limit of 0 means no limit.
func (p *Provider) List(ctx context.Context, prefix string, limit int) ([]bucketry.ObjectInfo, error) {
	var results []bucketry.ObjectInfo
	errLimit := errors.New("limit reached")

	err := filepath.WalkDir(p.root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && file == p.root {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.root, file)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		results = append(results, *p.info(key, st.Size()))
		if limit > 0 && len(results) >= limit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}
	return results, nil
}

// Ensure Provider implements bucketry.BucketProvider.
var _ bucketry.BucketProvider = (*Provider)(nil)
