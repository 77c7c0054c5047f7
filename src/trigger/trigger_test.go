package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s3NotificationJSON = `{
  "Records": [
    {
      "eventVersion": "2.1",
      "eventSource": "aws:s3",
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "pii-bucket", "arn": "arn:aws:s3:::pii-bucket"},
        "object": {"key": "metadata/customer+list_pii_fields.json", "size": 17}
      }
    },
    {
      "eventName": "ObjectRemoved:Delete",
      "s3": {"bucket": {"name": "pii-bucket"}, "object": {"key": "metadata/old_pii_fields.json"}}
    },
    {
      "eventName": "ObjectCreated:CompleteMultipartUpload",
      "s3": {"bucket": {"name": "pii-bucket"}, "object": {"key": "caf%C3%A9_pii_fields.json"}}
    }
  ]
}`

func TestParseS3Notification(t *testing.T) {
	events, err := Parse([]byte(s3NotificationJSON))
	require.NoError(t, err)
	assert.Equal(t, []Event{
		{Container: "pii-bucket", Key: "metadata/customer list_pii_fields.json"},
		{Container: "pii-bucket", Key: "café_pii_fields.json"},
	}, events)
}

func TestParseS3RecordWithoutEventName(t *testing.T) {
	events, err := Parse([]byte(`{"Records":[{"s3":{"bucket":{"name":"b"},"object":{"key":"x_pii_fields.json"}}}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Event{{Container: "b", Key: "x_pii_fields.json"}}, events)
}

func TestParseS3NotificationNothingCreated(t *testing.T) {
	events, err := Parse([]byte(`{"Records":[]}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEventBridge(t *testing.T) {
	doc := `{"version":"0","detail-type":"Object Created","source":"aws.s3",
		"detail":{"bucket":{"name":"b"},"object":{"key":"in/x y_pii_fields.json"}}}`
	events, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []Event{{Container: "b", Key: "in/x y_pii_fields.json"}}, events)

	events, err = Parse([]byte(`{"detail-type":"Object Deleted","detail":{"bucket":{"name":"b"},"object":{"key":"k"}}}`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParsePlainEvents(t *testing.T) {
	events, err := Parse([]byte(` {"container": "c", "key": "x_pii_fields.json"} `))
	require.NoError(t, err)
	assert.Equal(t, []Event{{Container: "c", Key: "x_pii_fields.json"}}, events)

	events, err = Parse([]byte(`[{"container":"c","key":"a_pii_fields.json"},{"container":"d","key":"b_pii_fields.json"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Event{{"c", "a_pii_fields.json"}, {"d", "b_pii_fields.json"}}, events)
	assert.Equal(t, "d/b_pii_fields.json", events[1].String())
}

func TestParseInvalid(t *testing.T) {
	for _, doc := range []string{
		``,
		`   `,
		`not json`,
		`{"foo": "bar"}`,
		`{"container": "c"}`,
		`{"container": "", "key": "k"}`,
		`[{"container": "c", "key": ""}]`,
		`{"Records": [{"s3": {"bucket": {"name": ""}, "object": {"key": "k"}}}]}`,
		`{"Records": [{"s3": {"bucket": {"name": "b"}, "object": {"key": "bad%zzkey"}}}]}`,
		`{"Records": "nope"}`,
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidEvent, doc)
	}
}
