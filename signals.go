package bucketry

import "github.com/zoobzio/capitan"

// Signals for object and image bundle lifecycle events.
var (
	GetStarted      = capitan.NewSignal("bucketry.get.started", "Object fetch initiated")
	GetCompleted    = capitan.NewSignal("bucketry.get.completed", "Object fetch succeeded")
	GetFailed       = capitan.NewSignal("bucketry.get.failed", "Object fetch failed")
	PutStarted      = capitan.NewSignal("bucketry.put.started", "Object write initiated")
	PutCompleted    = capitan.NewSignal("bucketry.put.completed", "Object write succeeded")
	PutFailed       = capitan.NewSignal("bucketry.put.failed", "Object write failed")
	DeleteStarted   = capitan.NewSignal("bucketry.delete.started", "Object deletion initiated")
	DeleteCompleted = capitan.NewSignal("bucketry.delete.completed", "Object deletion succeeded")
	DeleteFailed    = capitan.NewSignal("bucketry.delete.failed", "Object deletion failed")
	ExistsCompleted = capitan.NewSignal("bucketry.exists.completed", "Object existence checked")
	ListCompleted   = capitan.NewSignal("bucketry.list.completed", "Object listing completed")

	UploadCompleted = capitan.NewSignal("bucketry.bundle.upload.completed", "Image bundle uploaded")
	UploadFailed    = capitan.NewSignal("bucketry.bundle.upload.failed", "Image bundle upload failed")
	FetchCompleted  = capitan.NewSignal("bucketry.bundle.fetch.completed", "Image bundle fetched")
	FetchFailed     = capitan.NewSignal("bucketry.bundle.fetch.failed", "Image bundle fetch failed")
)

// Field keys for event extraction.
var (
	FieldBucket   = capitan.NewStringKey("bucket")
	FieldKey      = capitan.NewStringKey("key")
	FieldPrefix   = capitan.NewStringKey("prefix")
	FieldDuration = capitan.NewDurationKey("duration")
	FieldError    = capitan.NewErrorKey("error")
	FieldExists   = capitan.NewBoolKey("exists")
	FieldSize     = capitan.NewInt64Key("size")
	FieldCount    = capitan.NewIntKey("count")
	FieldLimit    = capitan.NewIntKey("limit")
	FieldSlots    = capitan.NewKey[[]string]("slots", "bucketry.Slots")
)
