package trigger

import (
	"encoding/json"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/validation"
)

// Values identifying an S3 Object Created event.
const (
	SourceS3          = "aws.s3"
	DetailTypeCreated = "Object Created"
)

// ObjectCreated is the EventBridge envelope S3 emits for a new object.
type ObjectCreated struct {
	Version    string        `json:"version"`
	ID         string        `json:"id"`
	DetailType string        `json:"detail-type" validate:"required"`
	Source     string        `json:"source" validate:"required"`
	Account    string        `json:"account,omitempty"`
	Time       time.Time     `json:"time"`
	Region     string        `json:"region,omitempty"`
	Resources  []string      `json:"resources,omitempty"`
	Detail     CreatedDetail `json:"detail"`
}

// CreatedDetail is the S3-specific part of the event.
type CreatedDetail struct {
	Bucket struct {
		Name string `json:"name" validate:"required"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key" validate:"required"`
		Size int64  `json:"size"`
		ETag string `json:"etag,omitempty"`
	} `json:"object"`
	Reason string `json:"reason,omitempty"`
}

// ParseObjectCreated decodes an event envelope. Malformed input is INVALID_INPUT.
func ParseObjectCreated(data []byte) (*ObjectCreated, error) {
	var ev ObjectCreated
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.InvalidInput("event", "not a JSON event envelope").WithCause(err)
	}
	if err := validation.Validate(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Trigger returns the execution input the event describes.
func (e *ObjectCreated) Trigger() execution.Trigger {
	return execution.Trigger{
		ObjectRef: execution.ObjectRef{Bucket: e.Detail.Bucket.Name, Key: e.Detail.Object.Key},
		Timestamp: e.Time,
	}
}
