package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/resilience"
	"github.com/kbukum/mediaflow/storage"
	"github.com/kbukum/mediaflow/workflow"
)

// Result keys written by the controller.
const (
	KeyObject         = "object"
	KeyStartedAt      = "startedAt"
	KeyPartial        = "partial"
	KeyFailedBranches = "failedBranches"
	KeyOutput         = "output"
)

// Controller runs the start and aggregate steps of a graph.
type Controller struct {
	graph   *workflow.Graph
	storage storage.Storage
	cfg     Config
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithClock replaces time.Now for the start timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller for graph reading and writing objects in s.
func New(graph *workflow.Graph, s storage.Storage, cfg Config, opts ...Option) (*Controller, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{graph: graph, storage: s, cfg: cfg, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("controller")
	return c, nil
}

// Start admits the trigger object. It fails with INVALID_INPUT when the
// object is missing, empty, too large, of an unknown format or outside the
// configured bucket. Storage failures are passed through for retry.
func (c *Controller) Start(ctx context.Context, exec *execution.Execution, _ *workflow.JobNode) execution.Outcome {
	in := exec.Input
	if c.cfg.Bucket != "" && in.Bucket != c.cfg.Bucket {
		return execution.Failure(errors.InvalidInput("bucket", fmt.Sprintf("bucket %q is not served", in.Bucket)))
	}
	ext := strings.ToLower(path.Ext(in.Key))
	if !slices.Contains(c.cfg.Extensions, ext) {
		return execution.Failure(errors.InvalidInput("key", fmt.Sprintf("unsupported media format %q", ext)))
	}

	info, err := c.storage.Stat(ctx, in.Key)
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return execution.Failure(errors.InvalidInput("key", "object does not exist"))
	}
	if err != nil {
		return execution.Failure(err)
	}
	switch {
	case info.Size == 0:
		return execution.Failure(errors.InvalidInput("key", "object is empty"))
	case c.cfg.MaxSize > 0 && info.Size > c.cfg.MaxSize:
		return execution.Failure(errors.InvalidInput("key", fmt.Sprintf("object is %d bytes, limit is %d", info.Size, c.cfg.MaxSize)))
	}

	c.log.WithExecution(exec.ID).Debug("Object admitted", logger.Fields(
		logger.FieldObjectKey, in.Key, "size", info.Size, "content_type", info.ContentType))

	return execution.Outcome{
		Output: map[string]any{
			"object": in.Name(),
			"bucket": in.Bucket,
			"key":    in.Key,
			"size":   info.Size,
		},
		Result: map[string]any{
			KeyObject:    in.Name(),
			KeyStartedAt: c.now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// Aggregate merges the published fields of every branch into the result.
// Branches are visited in declaration order and nodes in chain order, so the
// result does not depend on which branch finished first. A failed optional
// branch adds a partial marker; a failed mandatory branch fails the step
// with INCOMPLETE_ANALYSIS.
func (c *Controller) Aggregate(ctx context.Context, exec *execution.Execution, node *workflow.JobNode) execution.Outcome {
	group, ok := c.graph.JoinGroup(node.ID)
	if !ok {
		return execution.Failure(errors.Internal(fmt.Errorf("node %s joins no branch group", node.ID)))
	}
	barrier := exec.Branches[group.Name]

	result := maps.Clone(exec.Result)
	if result == nil {
		result = make(map[string]any)
	}

	var mandatory, partial []string
	for _, branch := range group.Branches {
		if barrier != nil && slices.Contains(barrier.Failed, branch.Name) {
			if branch.Mandatory {
				mandatory = append(mandatory, branch.Name)
			} else {
				partial = append(partial, branch.Name)
			}
			continue
		}
		for _, id := range branch.Nodes {
			n, _ := c.graph.Node(id)
			for _, field := range n.Publish {
				if v, ok := exec.OutputField(id, field); ok {
					result[field] = v
				}
			}
		}
	}
	if len(mandatory) > 0 {
		return execution.Failure(errors.IncompleteAnalysis(mandatory))
	}
	if len(partial) > 0 {
		result[KeyPartial] = true
		result[KeyFailedBranches] = partial
	}

	output := map[string]any{}
	if c.cfg.OutputPrefix != "" {
		key := c.outputKey(exec.Input)
		result[KeyOutput] = key
		if err := c.persist(ctx, exec.ID, key, result); err != nil {
			return execution.Failure(err)
		}
		output["key"] = key
	}
	return execution.Outcome{Output: output, Result: result}
}

// outputKey places the result next to the input, e.g. output/interview1.json.
func (c *Controller) outputKey(in execution.ObjectRef) string {
	name := in.Name()
	return c.cfg.OutputPrefix + strings.TrimSuffix(name, path.Ext(name)) + ".json"
}

func (c *Controller) persist(ctx context.Context, execID, key string, result map[string]any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Internal(fmt.Errorf("encoding result: %w", err))
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.cfg.WriteAttempts
	retry.RetryIf = errors.IsRetryable
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.WithExecution(execID).Warn("Result upload failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt, logger.FieldError, err.Error(), "wait", wait.String()))
	}
	if err := resilience.RetryFunc(ctx, retry, func() error {
		return storage.WriteObject(ctx, c.storage, key, data)
	}); err != nil {
		return err
	}
	c.log.WithExecution(execID).Info("Result persisted", logger.Fields(logger.FieldObjectKey, key))
	return nil
}
