package domain

// BucketNotification represents an S3/MinIO bucket notification
type BucketNotification struct {
	EventName string `json:"EventName"`
	Key       string `json:"Key"`
	Records   []struct {
		EventName string `json:"eventName"`
		S3        struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
				ETag string `json:"eTag"`
			} `json:"object"`
		} `json:"s3"`
		EventTime string `json:"eventTime"`
	} `json:"Records"`
}

// EventType is a type that represents the type of an event
type EventType string

const (
	EventTypeSimpleUploadComplete    EventType = "SimpleUploadComplete"
	EventTypeMultipartUploadComplete EventType = "MultipartUploadComplete"
	EventTypeUnknown                 EventType = "Unknown"
)

// EventTypeFromName maps a provider event name to an EventType
func EventTypeFromName(name string) EventType {
	switch name {
	case "s3:ObjectCreated:Put", "s3:ObjectCreated:Post", "s3:ObjectCreated:Copy":
		return EventTypeSimpleUploadComplete
	case "s3:ObjectCreated:CompleteMultipartUpload":
		return EventTypeMultipartUploadComplete
	default:
		return EventTypeUnknown
	}
}

// ObjectCreated is the provider notification the core consumes: one stored object
type ObjectCreated struct {
	EventName string
	EventType EventType
	Bucket    string
	Key       string
	Size      int64
	ETag      string
}

// ObjectCreatedRecords flattens a bucket notification into ObjectCreated records
func (n BucketNotification) ObjectCreatedRecords() []ObjectCreated {
	out := make([]ObjectCreated, 0, len(n.Records))
	for _, r := range n.Records {
		out = append(out, ObjectCreated{
			EventName: r.EventName,
			EventType: EventTypeFromName(r.EventName),
			Bucket:    r.S3.Bucket.Name,
			Key:       r.S3.Object.Key,
			Size:      r.S3.Object.Size,
			ETag:      NormalizeETag(r.S3.Object.ETag),
		})
	}
	return out
}
