package api

import (
	"cmp"
	"encoding/json"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
)

// StartRequest names the object to analyze. The short field names bucket
// and key are accepted as aliases when decoding.
type StartRequest struct {
	SourceObjectBucket string    `json:"sourceObjectBucket" validate:"required"`
	SourceObjectKey    string    `json:"sourceObjectKey" validate:"required,objectkey"`
	Timestamp          time.Time `json:"timestamp"`
}

// UnmarshalJSON decodes the request, filling the source fields from the
// bucket and key aliases when they are absent.
func (r *StartRequest) UnmarshalJSON(data []byte) error {
	type plain StartRequest
	var w struct {
		plain
		Bucket string `json:"bucket"`
		Key    string `json:"key"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = StartRequest(w.plain)
	r.SourceObjectBucket = cmp.Or(r.SourceObjectBucket, w.Bucket)
	r.SourceObjectKey = cmp.Or(r.SourceObjectKey, w.Key)
	return nil
}

// Trigger converts the request to an arrival notification.
func (r StartRequest) Trigger() execution.Trigger {
	return execution.Trigger{
		ObjectRef: execution.ObjectRef{Bucket: r.SourceObjectBucket, Key: r.SourceObjectKey},
		Timestamp: r.Timestamp,
	}
}

// StartResponse carries the id of the execution that was started.
type StartResponse struct {
	ExecutionID string `json:"executionId"`
}

// CancelResponse reports the state after a cancel request.
type CancelResponse struct {
	ExecutionID string           `json:"executionId"`
	Status      execution.Status `json:"status"`
}

// Callback statuses.
const (
	CallbackSucceeded = "succeeded"
	CallbackFailed    = "failed"
)

// CallbackRequest is posted by a remote analysis service when an attempt ends.
type CallbackRequest struct {
	Token  string         `json:"token" validate:"required"`
	Status string         `json:"status" validate:"required,oneof=succeeded failed"`
	Output map[string]any `json:"output"`
	Error  *CallbackError `json:"error"`
}

// CallbackError describes a failed attempt. Retryable defaults to what the
// code implies.
type CallbackError struct {
	Code      errors.ErrorCode `json:"code" validate:"required"`
	Message   string           `json:"message"`
	Retryable *bool            `json:"retryable"`
}

// Outcome converts the callback into the engine's outcome.
func (r CallbackRequest) Outcome() execution.Outcome {
	if r.Status != CallbackFailed {
		return execution.Success(r.Output)
	}
	info := &errors.Info{Code: errors.ErrCodeExternalService, Message: "analysis failed", Retryable: true}
	if r.Error != nil {
		info.Code = r.Error.Code
		info.Message = r.Error.Message
		info.Retryable = errors.IsRetryableCode(r.Error.Code)
		if r.Error.Retryable != nil {
			info.Retryable = *r.Error.Retryable
		}
	}
	return execution.Failure(info.AppError())
}

// CallbackResponse acknowledges a completion. Stale completions are
// acknowledged too; the engine discards them.
type CallbackResponse struct {
	Accepted bool `json:"accepted"`
}

// ExecutionView is the public snapshot of an execution. Attempt tokens
// are never exposed.
type ExecutionView struct {
	ID          string              `json:"executionId"`
	Workflow    string              `json:"workflow"`
	Status      execution.Status    `json:"status"`
	Input       execution.ObjectRef `json:"input"`
	TriggeredAt time.Time           `json:"triggeredAt,omitzero"`
	Nodes       map[string]NodeView `json:"nodes"`
	Result      map[string]any      `json:"result,omitempty"`
	Error       *errors.Info        `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NodeView is the public state of one node.
type NodeView struct {
	Status     execution.NodeStatus `json:"status"`
	Attempts   int                  `json:"attempts"`
	Output     map[string]any       `json:"output,omitempty"`
	Error      *errors.Info         `json:"error,omitempty"`
	Accepted   bool                 `json:"accepted,omitempty"`
	StartedAt  time.Time            `json:"startedAt,omitzero"`
	FinishedAt time.Time            `json:"finishedAt,omitzero"`
	RetryAt    time.Time            `json:"retryAt,omitzero"`
}

// NewExecutionView builds the public snapshot of x.
func NewExecutionView(x *execution.Execution) ExecutionView {
	v := ExecutionView{
		ID:          x.ID,
		Workflow:    x.Workflow,
		Status:      x.Status,
		Input:       x.Input,
		TriggeredAt: x.TriggeredAt,
		Nodes:       make(map[string]NodeView, len(x.Nodes)),
		Result:      x.Result,
		Error:       x.Error,
		CreatedAt:   x.CreatedAt,
		UpdatedAt:   x.UpdatedAt,
	}
	for id, n := range x.Nodes {
		v.Nodes[id] = NodeView{
			Status:     n.Status,
			Attempts:   n.Attempts,
			Output:     n.Output,
			Error:      n.Error,
			Accepted:   n.Accepted,
			StartedAt:  n.StartedAt,
			FinishedAt: n.FinishedAt,
			RetryAt:    n.RetryAt,
		}
	}
	return v
}
