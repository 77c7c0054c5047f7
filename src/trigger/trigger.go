/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package trigger

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

var ErrInvalidEvent = errors.New("invalid trigger event")

// Event announces that the metadata object Key in Container is available.
type Event struct {
	Container string `json:"container"`
	Key       string `json:"key"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s/%s", e.Container, e.Key)
}

// S3 event notification, only the fields we need.
type s3Notification struct {
	Records []s3Record `json:"Records"`
}

type s3Record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// S3 event delivered through EventBridge. Keys are not url encoded here.
type eventBridgeEvent struct {
	DetailType string `json:"detail-type"`
	Detail     struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
}

// envelope is used to find out which of the accepted shapes a document has.
type envelope struct {
	Records    *json.RawMessage `json:"Records"`
	DetailType *string          `json:"detail-type"`
	Container  *string          `json:"container"`
}

const (
	objectCreatedPrefix    = "ObjectCreated:"
	objectCreatedEventType = "Object Created"
)

/*
Parse decodes a trigger document into the events it announces. Accepted:

  - an S3 event notification ({"Records": [...]}); records whose eventName is
    set and is not ObjectCreated:* are dropped, keys are url decoded,
  - an S3 event delivered by EventBridge ({"detail-type": "Object Created", "detail": {...}}),
  - {"container": "...", "key": "..."} or an array of these.

A document that announces nothing returns an empty slice and no error.
*/
func Parse(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidEvent)
	}
	if data[0] == '[' {
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		for i, e := range events {
			if err := validate(e); err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
		}
		return events, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	switch {
	case env.Records != nil:
		return parseS3Notification(data)
	case env.DetailType != nil:
		return parseEventBridge(data)
	case env.Container != nil:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if err := validate(e); err != nil {
			return nil, err
		}
		return []Event{e}, nil
	}
	return nil, fmt.Errorf("%w: expected an s3 event notification or a {\"container\", \"key\"} object", ErrInvalidEvent)
}

func parseS3Notification(data []byte) ([]Event, error) {
	var n s3Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	var events []Event
	for i, r := range n.Records {
		if r.EventName != "" && !strings.HasPrefix(r.EventName, objectCreatedPrefix) {
			continue
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: decode key %q: %v", ErrInvalidEvent, i, r.S3.Object.Key, err)
		}
		e := Event{Container: r.S3.Bucket.Name, Key: key}
		if err := validate(e); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func parseEventBridge(data []byte) ([]Event, error) {
	var eb eventBridgeEvent
	if err := json.Unmarshal(data, &eb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if eb.DetailType != objectCreatedEventType {
		return nil, nil
	}
	e := Event{Container: eb.Detail.Bucket.Name, Key: eb.Detail.Object.Key}
	if err := validate(e); err != nil {
		return nil, err
	}
	return []Event{e}, nil
}

func validate(e Event) error {
	if e.Container == "" {
		return fmt.Errorf("%w: missing container", ErrInvalidEvent)
	}
	if e.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidEvent)
	}
	return nil
}
