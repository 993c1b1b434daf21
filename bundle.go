package bucketry

// Slot names one pre-generated resolution/format variant of an image.
type Slot string

// Image bundle slots. The set is fixed and part of the wire format.
const (
	SlotWebP320w     Slot = "webp_320w"
	SlotWebP640w     Slot = "webp_640w"
	SlotWebP1280w    Slot = "webp_1280w"
	SlotPNG1280w     Slot = "png_1280w"
	SlotWebPOriginal Slot = "webp_original"
)

var slots = []Slot{SlotWebP320w, SlotWebP640w, SlotWebP1280w, SlotPNG1280w, SlotWebPOriginal}

// Slots returns every slot in wire order.
func Slots() []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

// Ext returns the file extension for objects stored in s.
func (s Slot) Ext() string {
	if s == SlotPNG1280w {
		return ".png"
	}
	return ".webp"
}

// ContentType returns the MIME type for objects stored in s.
func (s Slot) ContentType() string {
	if s == SlotPNG1280w {
		return "image/png"
	}
	return "image/webp"
}

// ImageBundle holds one image replicated across the fixed slots.
// Every slot is optional; nil means that variant was not generated.
type ImageBundle[P any] struct {
	WebP320w     *P `json:"webp_320w,omitempty"`
	WebP640w     *P `json:"webp_640w,omitempty"`
	WebP1280w    *P `json:"webp_1280w,omitempty"`
	PNG1280w     *P `json:"png_1280w,omitempty"`
	WebPOriginal *P `json:"webp_original,omitempty"`
}

func (b *ImageBundle[P]) ref(s Slot) **P {
	switch s {
	case SlotWebP320w:
		return &b.WebP320w
	case SlotWebP640w:
		return &b.WebP640w
	case SlotWebP1280w:
		return &b.WebP1280w
	case SlotPNG1280w:
		return &b.PNG1280w
	case SlotWebPOriginal:
		return &b.WebPOriginal
	}
	return nil
}

// Get returns the payload in s, if present.
func (b *ImageBundle[P]) Get(s Slot) (P, bool) {
	if r := b.ref(s); r != nil && *r != nil {
		return **r, true
	}
	var zero P
	return zero, false
}

// Set stores v in s. Unknown slots are ignored.
func (b *ImageBundle[P]) Set(s Slot, v P) {
	if r := b.ref(s); r != nil {
		*r = &v
	}
}

// Clear empties s.
func (b *ImageBundle[P]) Clear(s Slot) {
	if r := b.ref(s); r != nil {
		*r = nil
	}
}

// Populated returns the slots holding a payload, in wire order.
func (b *ImageBundle[P]) Populated() []Slot {
	var out []Slot
	for _, s := range slots {
		if *b.ref(s) != nil {
			out = append(out, s)
		}
	}
	return out
}

// Empty reports whether no slot is populated.
func (b *ImageBundle[P]) Empty() bool {
	return len(b.Populated()) == 0
}

// ImageBufferBundle carries raw image bytes per slot.
type ImageBufferBundle = ImageBundle[[]byte]

// ImageCloudBundle carries a URL per slot.
type ImageCloudBundle = ImageBundle[string]

// BucketedImageCloudBundle is an ImageCloudBundle whose URLs resolve in Bucket.
type BucketedImageCloudBundle struct {
	ImageCloudBundle
	Bucket BucketKey `json:"bucket"`
}

// ImageURLs is an ImageCloudBundle with a URL to use when no slot is populated.
type ImageURLs struct {
	ImageCloudBundle
	Fallback *string `json:"fallback,omitempty"`
}

// bestSlots orders slots from largest to smallest.
var bestSlots = []Slot{SlotWebPOriginal, SlotWebP1280w, SlotPNG1280w, SlotWebP640w, SlotWebP320w}

// Best returns the largest populated URL, or the fallback.
func (u *ImageURLs) Best() (string, bool) {
	for _, s := range bestSlots {
		if url, ok := u.Get(s); ok {
			return url, true
		}
	}
	if u.Fallback != nil {
		return *u.Fallback, true
	}
	return "", false
}

// NewImageBundleSchema builds the schema for an ImageBundle whose slots hold payload.
func NewImageBundleSchema[P any](name string, payload Payload[P]) Schema[ImageBundle[P]] {
	return imageBundleShape(name, payload, func(b *ImageBundle[P]) *ImageBundle[P] { return b })
}

// imageBundleShape declares the five optional slots on T, stored in the
// bundle that bundle returns.
func imageBundleShape[T, P any](name string, payload Payload[P], bundle func(*T) *ImageBundle[P]) Schema[T] {
	fields := make([]field[T], 0, len(slots))
	for _, s := range slots {
		fields = append(fields, optionalField(string(s), payload, func(dst *T) **P {
			return bundle(dst).ref(s)
		}))
	}
	return newSchema(name, fields, false)
}

// Bundle schemas.
var (
	ImageBufferBundleSchema = NewImageBundleSchema("ImageBufferBundle", BinaryPayload)
	ImageCloudBundleSchema  = NewImageBundleSchema("ImageCloudBundle", URLPayload)

	BucketedImageCloudBundleSchema = extend(ImageCloudBundleSchema, "BucketedImageCloudBundle",
		func(b *BucketedImageCloudBundle) *ImageCloudBundle { return &b.ImageCloudBundle },
		requiredField("bucket", BucketKeyPayload, func(b *BucketedImageCloudBundle) *BucketKey { return &b.Bucket }),
	)

	ImageURLsSchema = extend(ImageCloudBundleSchema, "ImageURLs",
		func(u *ImageURLs) *ImageCloudBundle { return &u.ImageCloudBundle },
		optionalField("fallback", URLPayload, func(u *ImageURLs) **string { return &u.Fallback }),
	)
)
