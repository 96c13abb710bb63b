package execution

import (
	"path"
	"slices"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/workflow"
)

// Status is the derived state of a whole execution.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// NodeStatus is the state of one node in one execution.
type NodeStatus string

const (
	NodePending   NodeStatus = "Pending"
	NodeRunning   NodeStatus = "Running"
	NodeSucceeded NodeStatus = "Succeeded"
	NodeFailed    NodeStatus = "Failed"
)

// Terminal reports whether the node will never transition again.
func (s NodeStatus) Terminal() bool {
	return s == NodeSucceeded || s == NodeFailed
}

// ObjectRef points at an object in storage. Executions never hold the bytes.
type ObjectRef struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required,objectkey"`
}

// IdempotencyKey identifies the triggering object; one execution per key may be in flight.
func (o ObjectRef) IdempotencyKey() string {
	return o.Bucket + "/" + o.Key
}

// Name returns the base name of the key, e.g. "interview1.mp4".
func (o ObjectRef) Name() string {
	return path.Base(o.Key)
}

// Trigger is the arrival notification that starts an execution.
type Trigger struct {
	ObjectRef
	Timestamp time.Time `json:"timestamp"`
}

// NodeState is the runtime state of one node.
type NodeState struct {
	Status   NodeStatus `json:"status"`
	Attempts int        `json:"attempts"`
	// Token identifies the attempt currently in flight. Completions carrying
	// any other token are stale.
	Token  string         `json:"token,omitempty"`
	Output map[string]any `json:"output,omitempty"`
	Error  *errors.Info   `json:"error,omitempty"`
	// Accepted marks a failure that the node's policy lets the join absorb.
	Accepted   bool      `json:"accepted,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	// Deadline bounds the attempt in flight.
	Deadline time.Time `json:"deadline,omitzero"`
	// RetryAt is set while the node waits out its backoff before the next attempt.
	RetryAt time.Time `json:"retryAt,omitzero"`
}

// Resolved reports whether the node counts as done for a join barrier.
func (n *NodeState) Resolved() bool {
	return n.Status == NodeSucceeded || (n.Status == NodeFailed && n.Accepted)
}

// BranchState tracks one branch group's barrier.
type BranchState struct {
	// Pending holds the branch terminals that are not resolved yet.
	Pending []string `json:"pending"`
	// Failed holds the names of branches that ended in an accepted failure.
	Failed []string `json:"failed,omitempty"`
	// Released is set once the join node has been dispatched.
	Released bool `json:"released"`
}

// Execution is the persisted state of one workflow run.
type Execution struct {
	ID          string                  `json:"id"`
	Workflow    string                  `json:"workflow"`
	Input       ObjectRef               `json:"input"`
	TriggeredAt time.Time               `json:"triggeredAt,omitzero"`
	Status      Status                  `json:"status"`
	Nodes       map[string]*NodeState   `json:"nodes"`
	Branches    map[string]*BranchState `json:"branches"`
	Result      map[string]any          `json:"result,omitempty"`
	Error       *errors.Info            `json:"error,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	// Version increases on every write and drives optimistic concurrency.
	Version int64 `json:"version"`
}

// New allocates the initial state for a run of g triggered by t.
func New(id string, t Trigger, g *workflow.Graph, now time.Time) *Execution {
	e := &Execution{
		ID:          id,
		Workflow:    g.Name(),
		Input:       t.ObjectRef,
		TriggeredAt: t.Timestamp,
		Status:      StatusRunning,
		Nodes:       make(map[string]*NodeState),
		Branches:    make(map[string]*BranchState),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, id := range g.NodeIDs() {
		e.Nodes[id] = &NodeState{Status: NodePending}
	}
	for _, group := range g.Groups() {
		e.Branches[group.Name] = &BranchState{Pending: slices.Sorted(slices.Values(group.Terminals()))}
	}
	return e
}

// Node returns the state of id, or nil when the graph has no such node.
func (e *Execution) Node(id string) *NodeState {
	return e.Nodes[id]
}

// InputField implements workflow.View.
func (e *Execution) InputField(field string) (any, bool) {
	switch field {
	case "bucket":
		return e.Input.Bucket, true
	case "key":
		return e.Input.Key, true
	}
	return nil, false
}

// OutputField implements workflow.View. Only succeeded nodes expose output.
func (e *Execution) OutputField(nodeID, field string) (any, bool) {
	n := e.Nodes[nodeID]
	if n == nil || n.Status != NodeSucceeded {
		return nil, false
	}
	v, ok := n.Output[field]
	return v, ok
}

// Running returns the ids of nodes with an attempt in flight or waiting to retry.
func (e *Execution) Running() []string {
	var ids []string
	for id, n := range e.Nodes {
		if n.Status == NodeRunning {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

var _ workflow.View = (*Execution)(nil)
