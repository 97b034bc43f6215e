package queue_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/bjaus/flatjson/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s3Event = `{"Records": [
	{"eventName": "ObjectCreated:Put",
	 "s3": {"bucket": {"name": "in"}, "object": {"key": "bundles/Patient+Bundle%281%29.json", "size": 1024}}},
	{"eventName": "ObjectCreated:Copy",
	 "s3": {"bucket": {"name": "in"}, "object": {"key": "b.json", "size": 7}}}
]}`

func TestParseS3Event(t *testing.T) {
	t.Parallel()
	refs, err := queue.ParseS3Event(s3Event)
	require.NoError(t, err)
	assert.Equal(t, []queue.ObjectRef{
		{Bucket: "in", Key: "bundles/Patient Bundle(1).json", Size: 1024, EventName: "ObjectCreated:Put"},
		{Bucket: "in", Key: "b.json", Size: 7, EventName: "ObjectCreated:Copy"},
	}, refs)
}

func TestParseS3EventSNSEnvelope(t *testing.T) {
	t.Parallel()
	body := `{"Type": "Notification", "MessageId": "x", "Message": ` + strconv.Quote(s3Event) + `}`
	refs, err := queue.ParseS3Event(body)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "bundles/Patient Bundle(1).json", refs[0].Key)
}

func TestParseS3EventErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		body      string
		noRecords bool
	}{
		"not json":          {body: `Records`},
		"test event":        {body: `{"Service": "Amazon S3", "Event": "s3:TestEvent"}`, noRecords: true},
		"empty records":     {body: `{"Records": []}`, noRecords: true},
		"missing key":       {body: `{"Records": [{"s3": {"object": {}}}]}`},
		"bad escape":        {body: `{"Records": [{"s3": {"object": {"key": "a%zz"}}}]}`},
		"sns without event": {body: `{"Type": "Notification", "Message": "hello"}`},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			refs, err := queue.ParseS3Event(tt.body)
			require.Error(t, err)
			assert.Nil(t, refs)
			assert.Equal(t, tt.noRecords, errors.Is(err, queue.ErrNoRecords))
		})
	}
}
