package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/mediaflow/errors"
)

type notification struct {
	Bucket string `json:"sourceObjectBucket" validate:"required"`
	Key    string `json:"sourceObjectKey" validate:"required,objectkey"`
	Mode   string `json:"mode" validate:"omitempty,oneof=sync async"`
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(notification{Bucket: "media", Key: "input/interview1.mp4"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		in    notification
		field string
	}{
		{"missing bucket", notification{Key: "input/a.mp4"}, "sourceObjectBucket"},
		{"prefix key", notification{Bucket: "b", Key: "input/"}, "sourceObjectKey"},
		{"relative key", notification{Bucket: "b", Key: "input/../secret.mp4"}, "sourceObjectKey"},
		{"leading slash", notification{Bucket: "b", Key: "/input/a.mp4"}, "sourceObjectKey"},
		{"bad mode", notification{Bucket: "b", Key: "input/a.mp4", Mode: "batch"}, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected message to name %s, got %q", tt.field, err.Error())
			}
			appErr, _ := errors.AsAppError(err)
			fields, ok := appErr.Details["fields"].([]FieldError)
			if !ok || len(fields) == 0 || fields[0].Field != tt.field {
				t.Errorf("unexpected field details %v", appErr.Details)
			}
		})
	}
}
