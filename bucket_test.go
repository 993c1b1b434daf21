package bucketry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/capitan"
)

// mockBucketProvider implements BucketProvider for testing.
type mockBucketProvider struct {
	data      map[string][]byte
	info      map[string]*ObjectInfo
	getErr    error
	putErr    error
	deleteErr error
	existsErr error
	listErr   error
}

func newMockBucketProvider() *mockBucketProvider {
	return &mockBucketProvider{
		data: make(map[string][]byte),
		info: make(map[string]*ObjectInfo),
	}
}

func (m *mockBucketProvider) Get(_ context.Context, key string) ([]byte, *ObjectInfo, error) {
	if m.getErr != nil {
		return nil, nil, m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	info := m.info[key]
	if info == nil {
		info = &ObjectInfo{Key: key}
	}
	return data, info, nil
}

func (m *mockBucketProvider) Put(_ context.Context, key string, data []byte, info *ObjectInfo) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = data
	m.info[key] = info
	return nil
}

func (m *mockBucketProvider) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	delete(m.info, key)
	return nil
}

func (m *mockBucketProvider) Exists(_ context.Context, key string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockBucketProvider) List(_ context.Context, prefix string, limit int) ([]ObjectInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var results []ObjectInfo
	for k, info := range m.info {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if info != nil {
			results = append(results, *info)
		} else {
			results = append(results, ObjectInfo{Key: k})
		}
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

var _ BucketProvider = (*mockBucketProvider)(nil)

func cloudURLs(bucket BucketKey) BucketedImageCloudBundle {
	b := BucketedImageCloudBundle{Bucket: bucket}
	b.Set(SlotWebP320w, "https://static.biomes.gg/a/webp_320w.webp")
	b.Set(SlotPNG1280w, "https://static.biomes.gg/a/png_1280w.png")
	return b
}

func TestNewBucket(t *testing.T) {
	b := NewBucket[ImageURLs](newMockBucketProvider())

	if _, ok := b.codec.(JSONCodec); !ok {
		t.Errorf("expected JSONCodec by default, got %T", b.codec)
	}
	if b.Metadata().TypeName != "ImageURLs" {
		t.Errorf("metadata type: got %q", b.Metadata().TypeName)
	}
}

func TestNewBucketWithCodec(t *testing.T) {
	b := NewBucket[ImageURLs](newMockBucketProvider(), WithCodec[ImageURLs](GobCodec{}))
	if _, ok := b.codec.(GobCodec); !ok {
		t.Errorf("expected GobCodec, got %T", b.codec)
	}

	b = NewBucket[ImageURLs](newMockBucketProvider(), WithCodec[ImageURLs](nil))
	if _, ok := b.codec.(JSONCodec); !ok {
		t.Errorf("nil codec should fall back to JSONCodec, got %T", b.codec)
	}
}

func TestBucket_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes payload", func(t *testing.T) {
		p := newMockBucketProvider()
		p.data["a/bundle.json"] = []byte(`{"webp_320w":"https://x/320","bucket":"biomes-static"}`)
		p.info["a/bundle.json"] = &ObjectInfo{Key: "a/bundle.json", ContentType: "application/json", Size: 52, ETag: "e1"}
		b := NewBucket[BucketedImageCloudBundle](p)

		obj, err := b.Get(ctx, "a/bundle.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if obj.Data.Bucket != "biomes-static" {
			t.Errorf("bucket: got %q", obj.Data.Bucket)
		}
		if url, _ := obj.Data.Get(SlotWebP320w); url != "https://x/320" {
			t.Errorf("webp_320w: got %q", url)
		}
		if obj.ETag != "e1" || obj.ContentType != "application/json" || obj.Size != 52 {
			t.Errorf("metadata not carried: %+v", obj)
		}
	})

	t.Run("not found", func(t *testing.T) {
		b := NewBucket[ImageURLs](newMockBucketProvider())
		if _, err := b.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty key", func(t *testing.T) {
		b := NewBucket[ImageURLs](newMockBucketProvider())
		if _, err := b.Get(ctx, ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("decode failure", func(t *testing.T) {
		p := newMockBucketProvider()
		p.data["bad"] = []byte("{")
		b := NewBucket[ImageURLs](p)
		if _, err := b.Get(ctx, "bad"); !errors.Is(err, ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("manifest without bucket rejected", func(t *testing.T) {
		p := newMockBucketProvider()
		p.data["m"] = []byte(`{"webp_320w":"https://x/320"}`)
		b := NewBucket[BucketedImageCloudBundle](p)
		if _, err := b.Get(ctx, "m"); !errors.Is(err, ErrSchema) {
			t.Errorf("expected ErrSchema, got %v", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		p := newMockBucketProvider()
		p.getErr = errors.New("boom")
		b := NewBucket[ImageURLs](p)
		if _, err := b.Get(ctx, "k"); err == nil || err.Error() != "boom" {
			t.Errorf("expected provider error, got %v", err)
		}
	})
}

func TestBucket_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("stores encoded payload", func(t *testing.T) {
		p := newMockBucketProvider()
		b := NewBucket[BucketedImageCloudBundle](p)

		obj := &Object[BucketedImageCloudBundle]{Key: "a/bundle.json", Data: cloudURLs("biomes-static")}
		if err := b.Put(ctx, obj); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info := p.info["a/bundle.json"]
		if info == nil {
			t.Fatal("expected info to be stored")
		}
		if info.ContentType != "application/json" {
			t.Errorf("content type: got %q", info.ContentType)
		}
		if info.Size != int64(len(p.data["a/bundle.json"])) {
			t.Errorf("size: got %d", info.Size)
		}
		if !strings.Contains(string(p.data["a/bundle.json"]), `"bucket":"biomes-static"`) {
			t.Errorf("payload: got %s", p.data["a/bundle.json"])
		}
	})

	t.Run("explicit content type kept", func(t *testing.T) {
		p := newMockBucketProvider()
		b := NewBucket[ImageURLs](p)
		obj := &Object[ImageURLs]{Key: "k", ContentType: "application/vnd.bundle+json"}
		if err := b.Put(ctx, obj); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.info["k"].ContentType; got != "application/vnd.bundle+json" {
			t.Errorf("content type: got %q", got)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		b := NewBucket[ImageURLs](newMockBucketProvider())
		if err := b.Put(ctx, nil); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("nil object: expected ErrInvalidKey, got %v", err)
		}
		if err := b.Put(ctx, &Object[ImageURLs]{}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("empty key: expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("unregistered bucket rejected before encoding", func(t *testing.T) {
		p := newMockBucketProvider()
		b := NewBucket[BucketedImageCloudBundle](p)
		obj := &Object[BucketedImageCloudBundle]{Key: "k", Data: cloudURLs("not-a-bucket")}
		if err := b.Put(ctx, obj); !errors.Is(err, ErrSchema) {
			t.Errorf("expected ErrSchema, got %v", err)
		}
		if _, ok := p.data["k"]; ok {
			t.Error("nothing should be stored")
		}
	})

	t.Run("encode failure", func(t *testing.T) {
		type unencodable struct {
			C chan int `json:"c"`
		}
		b := NewBucket[unencodable](newMockBucketProvider())
		err := b.Put(ctx, &Object[unencodable]{Key: "k", Data: unencodable{C: make(chan int)}})
		if !errors.Is(err, ErrEncode) {
			t.Errorf("expected ErrEncode, got %v", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		p := newMockBucketProvider()
		p.putErr = errors.New("boom")
		b := NewBucket[ImageURLs](p)
		if err := b.Put(ctx, &Object[ImageURLs]{Key: "k"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestBucket_Delete(t *testing.T) {
	ctx := context.Background()
	p := newMockBucketProvider()
	p.data["k"] = []byte("{}")
	b := NewBucket[ImageURLs](p)

	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.data["k"]; ok {
		t.Error("expected key to be deleted")
	}
	if err := b.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBucket_Exists(t *testing.T) {
	ctx := context.Background()
	p := newMockBucketProvider()
	p.data["k"] = []byte("{}")
	b := NewBucket[ImageURLs](p)

	exists, err := b.Exists(ctx, "k")
	if err != nil || !exists {
		t.Errorf("expected k to exist, got %v, %v", exists, err)
	}
	exists, err = b.Exists(ctx, "other")
	if err != nil || exists {
		t.Errorf("expected other to be absent, got %v, %v", exists, err)
	}

	p.existsErr = errors.New("boom")
	if _, err := b.Exists(ctx, "k"); err == nil {
		t.Error("expected error")
	}
}

func TestBucket_List(t *testing.T) {
	ctx := context.Background()
	p := newMockBucketProvider()
	for _, k := range []string{"a/1", "a/2", "b/1"} {
		p.data[k] = []byte("{}")
		p.info[k] = &ObjectInfo{Key: k}
	}
	b := NewBucket[ImageURLs](p)

	infos, err := b.List(ctx, "a/", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected 2 results, got %d", len(infos))
	}

	infos, err = b.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("expected limit to apply, got %d", len(infos))
	}

	p.listErr = errors.New("boom")
	if _, err := b.List(ctx, "", 0); err == nil {
		t.Error("expected error")
	}
}

func TestBucket_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, codec := range map[string]Codec{"json": JSONCodec{}, "gob": GobCodec{}} {
		t.Run(name, func(t *testing.T) {
			b := NewBucket[BucketedImageCloudBundle](newMockBucketProvider(), WithCodec[BucketedImageCloudBundle](codec))
			in := cloudURLs("zones-social")
			if err := b.Put(ctx, &Object[BucketedImageCloudBundle]{Key: "m", Data: in}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			obj, err := b.Get(ctx, "m")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if obj.Data.Bucket != in.Bucket {
				t.Errorf("bucket: got %q", obj.Data.Bucket)
			}
			for _, slot := range Slots() {
				want, wok := in.Get(slot)
				got, gok := obj.Data.Get(slot)
				if want != got || wok != gok {
					t.Errorf("%s: got %q/%v, want %q/%v", slot, got, gok, want, wok)
				}
			}
		})
	}
}

func TestBucket_EmitsSignals(t *testing.T) {
	ctx := context.Background()
	b := NewBucket[ImageURLs](newMockBucketProvider())

	var (
		mu   sync.Mutex
		seen = make(map[capitan.Signal]int)
		size int64
	)
	record := func(_ context.Context, e *capitan.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Signal()]++
		if e.Signal() == PutCompleted {
			size = FieldSize.ExtractFromFields(e.Fields())
		}
	}
	var drains []func()
	for _, sig := range []capitan.Signal{PutStarted, PutCompleted, GetStarted, GetCompleted, GetFailed, DeleteCompleted} {
		l := capitan.Hook(sig, record)
		drains = append(drains, func() {
			_ = l.Drain(ctx)
			l.Close()
		})
	}

	if err := b.Put(ctx, &Object[ImageURLs]{Key: "k"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := b.Get(ctx, "k"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_, _ = b.Get(ctx, "missing")
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Wait for async events
	for _, drain := range drains {
		drain()
	}

	mu.Lock()
	defer mu.Unlock()
	once := map[string]capitan.Signal{
		"PutStarted":      PutStarted,
		"PutCompleted":    PutCompleted,
		"GetCompleted":    GetCompleted,
		"GetFailed":       GetFailed,
		"DeleteCompleted": DeleteCompleted,
	}
	for name, sig := range once {
		if seen[sig] != 1 {
			t.Errorf("%s: expected 1 event, got %d", name, seen[sig])
		}
	}
	if seen[GetStarted] != 2 {
		t.Errorf("GetStarted: expected 2 events, got %d", seen[GetStarted])
	}
	if size != 2 {
		t.Errorf("PutCompleted size: got %d, want 2", size)
	}
}
