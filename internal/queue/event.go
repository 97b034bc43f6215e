package queue

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

// ErrNoRecords is returned for notifications that carry no object records,
// such as the s3:TestEvent S3 sends when a notification is configured.
var ErrNoRecords = errors.New("no S3 records in message")

// ObjectRef identifies an object named by an S3 event notification.
type ObjectRef struct {
	Bucket    string
	Key       string
	Size      int64
	EventName string
}

// ParseS3Event extracts the objects referenced by an S3 event notification.
// Bodies delivered through an SNS subscription are unwrapped first. Object
// keys are URL-decoded, with "+" meaning a space.
func ParseS3Event(body string) ([]ObjectRef, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("message body is not JSON")
	}
	if gjson.Get(body, "Type").Str == "Notification" {
		inner := gjson.Get(body, "Message")
		if inner.Type != gjson.String || !gjson.Valid(inner.Str) {
			return nil, fmt.Errorf("SNS notification without a JSON message")
		}
		body = inner.Str
	}

	records := gjson.Get(body, "Records")
	if !records.IsArray() || len(records.Array()) == 0 {
		return nil, ErrNoRecords
	}

	var refs []ObjectRef
	for i, rec := range records.Array() {
		rawKey := rec.Get("s3.object.key")
		if rawKey.Type != gjson.String || rawKey.Str == "" {
			return nil, fmt.Errorf("record %d: missing s3.object.key", i)
		}
		key, err := url.QueryUnescape(rawKey.Str)
		if err != nil {
			return nil, fmt.Errorf("record %d: decoding key %q: %w", i, rawKey.Str, err)
		}
		refs = append(refs, ObjectRef{
			Bucket:    rec.Get("s3.bucket.name").Str,
			Key:       key,
			Size:      rec.Get("s3.object.size").Int(),
			EventName: rec.Get("eventName").Str,
		})
	}
	return refs, nil
}
