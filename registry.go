package bucketry

// CloudBucket describes how a logical bucket is served.
// Empty fields are unset.
type CloudBucket struct {
	// CDNDomain fronts the bucket for public reads.
	CDNDomain string

	// RealBucketName is the backing GCS bucket when it differs from the identifier.
	RealBucketName string
}

type registration struct {
	key    BucketKey
	bucket CloudBucket
}

// registrations is the only list of bucket identifiers. The lookup table and
// the validator's allowed set are both derived from it.
// Order is the persisted enumeration order; append, never reorder or remove.
var registrations = []registration{
	// World backups.
	{key: "biomes-backup"},
	{key: "biomes-social", bucket: CloudBucket{
		CDNDomain:      "social.biomes.us.to",
		RealBucketName: "biomes-social.appspot.com",
	}},
	{key: "biomes-static", bucket: CloudBucket{
		CDNDomain: "static.biomes.gg",
	}},
	// User-filed bug report attachments.
	{key: "report-attachments"},
	// Bikkie binary data.
	{key: "biomes-bikkie", bucket: CloudBucket{
		RealBucketName: "biomes42.appspot.com",
	}},
	// Legacy.
	{key: "zones-social", bucket: CloudBucket{
		CDNDomain: "social.biomes.gg",
	}},
}

var (
	bucketKeys  []BucketKey
	cloudBucket map[BucketKey]CloudBucket
)

func init() {
	bucketKeys = make([]BucketKey, 0, len(registrations))
	cloudBucket = make(map[BucketKey]CloudBucket, len(registrations))
	for _, r := range registrations {
		if _, dup := cloudBucket[r.key]; dup {
			panic("bucketry: duplicate bucket registration: " + string(r.key))
		}
		bucketKeys = append(bucketKeys, r.key)
		cloudBucket[r.key] = r.bucket
	}
}

// BucketKeys returns every registered bucket identifier in enumeration order.
func BucketKeys() []BucketKey {
	out := make([]BucketKey, len(bucketKeys))
	copy(out, bucketKeys)
	return out
}

// LookupBucket returns the registry entry for name.
// Unknown names report false; they are not an error.
func LookupBucket(name string) (CloudBucket, bool) {
	b, ok := cloudBucket[BucketKey(name)]
	return b, ok
}
