package workflow

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/resilience"
)

// Kind tells the engine who executes a node.
type Kind string

const (
	// KindStart runs the task controller's start step.
	KindStart Kind = "start"
	// KindJob calls an analysis service.
	KindJob Kind = "job"
	// KindAggregate runs the task controller's aggregation step.
	KindAggregate Kind = "aggregate"
)

// FailureAction is what happens once a node has exhausted its retries.
type FailureAction string

const (
	// FailExecution fails the whole execution. This is the default.
	FailExecution FailureAction = "fail"
	// ContinueBranch records the node's branch as failed and lets the join proceed.
	ContinueBranch FailureAction = "continue"
)

// InputSource is the pseudo node id that refers to the trigger object.
const InputSource = "input"

// InputFields are the fields readable from InputSource.
var InputFields = []string{"bucket", "key"}

// RetryPolicy bounds how often a failed node is dispatched again.
type RetryPolicy struct {
	// MaxAttempts counts the first attempt. Zero means one attempt.
	MaxAttempts int `yaml:"max_attempts" json:"maxAttempts"`
	// Backoff shapes the delay before each re-dispatch.
	Backoff resilience.Backoff `yaml:"backoff" json:"backoff"`
	// NonRetryable lists codes that are final even when the error says otherwise.
	NonRetryable []errors.ErrorCode `yaml:"non_retryable,omitempty" json:"nonRetryable,omitempty"`
}

// ShouldRetry reports whether a node that failed its attempts-th attempt with err gets another one.
func (p RetryPolicy) ShouldRetry(attempts int, err *errors.AppError) bool {
	if attempts >= max(p.MaxAttempts, 1) {
		return false
	}
	if slices.Contains(p.NonRetryable, err.Code) {
		return false
	}
	return err.Retryable
}

// Delay returns the wait before the attempt following attempts.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	return p.Backoff.Delay(attempts)
}

// JobNode describes one unit of work. It holds no runtime state.
type JobNode struct {
	// ID is unique within the graph.
	ID string `yaml:"id" json:"id"`
	// Kind defaults to KindJob.
	Kind Kind `yaml:"kind,omitempty" json:"kind"`
	// Service names the analysis service invoked by a job node.
	Service string `yaml:"service,omitempty" json:"service,omitempty"`
	// Inputs maps payload field names to "<node>.<field>" references.
	Inputs map[string]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	// Provides lists the output fields a successful attempt must return.
	Provides []string `yaml:"provides,omitempty" json:"provides,omitempty"`
	// Publish lists the output fields merged into the execution result.
	Publish []string `yaml:"publish,omitempty" json:"publish,omitempty"`
	// Retry is the node's retry policy.
	Retry RetryPolicy `yaml:"retry,omitempty" json:"retry"`
	// Timeout is the deadline of each attempt. Zero uses the engine default.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// OnSuccess lists the nodes considered once this node succeeds.
	OnSuccess []string `yaml:"on_success,omitempty" json:"onSuccess,omitempty"`
	// OnFailure decides what an exhausted failure does.
	OnFailure FailureAction `yaml:"on_failure,omitempty" json:"onFailure,omitempty"`

	bindings []Binding
}

// clone copies every slice and map so the result shares nothing with n.
func (n *JobNode) clone() JobNode {
	c := *n
	c.Inputs = maps.Clone(n.Inputs)
	c.Provides = slices.Clone(n.Provides)
	c.Publish = slices.Clone(n.Publish)
	c.OnSuccess = slices.Clone(n.OnSuccess)
	c.Retry.NonRetryable = slices.Clone(n.Retry.NonRetryable)
	c.bindings = slices.Clone(n.bindings)
	return c
}

// BestEffort reports whether the node's exhausted failure is accepted.
func (n *JobNode) BestEffort() bool {
	return n.OnFailure == ContinueBranch
}

// Bindings returns the parsed input references sorted by payload name.
func (n *JobNode) Bindings() []Binding {
	return n.bindings
}

// Binding copies one field of a predecessor's output into the job payload.
type Binding struct {
	Name  string
	Node  string
	Field string
}

func parseBindings(n *JobNode) ([]Binding, error) {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	slices.Sort(names)

	bindings := make([]Binding, 0, len(names))
	for _, name := range names {
		ref := n.Inputs[name]
		node, field, ok := strings.Cut(ref, ".")
		if !ok || node == "" || field == "" {
			return nil, fmt.Errorf("input %q of node %s must be <node>.<field>, got %q", name, n.ID, ref)
		}
		bindings = append(bindings, Binding{Name: name, Node: node, Field: field})
	}
	return bindings, nil
}
