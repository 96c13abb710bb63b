package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/mediaflow/analysis"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
)

// Responder produces the outcome of one request.
type Responder func(req analysis.Request) execution.Outcome

// Succeed answers every request with output.
func Succeed(output map[string]any) Responder {
	return func(analysis.Request) execution.Outcome { return execution.Success(output) }
}

// Fail answers every request with err.
func Fail(err error) Responder {
	return func(analysis.Request) execution.Outcome { return execution.Failure(err) }
}

// FailTimes fails the first n requests with err and then answers with output.
func FailTimes(n int, err error, output map[string]any) Responder {
	return func(req analysis.Request) execution.Outcome {
		if req.Attempt <= n {
			return execution.Failure(err)
		}
		return execution.Success(output)
	}
}

// Service is a fake analysis.Service. Without a responder it only records
// requests, and the test completes them with Complete.
type Service struct {
	name string

	mu        sync.Mutex
	requests  []analysis.Request
	respond   Responder
	invokeErr error
}

var _ analysis.Service = (*Service)(nil)

// NewService creates a fake named name.
func NewService(name string) *Service {
	return &Service{name: name}
}

// Respond makes the fake complete each request inline, before Invoke returns.
func (s *Service) Respond(r Responder) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = r
	return s
}

// RejectWith makes Invoke fail synchronously with err.
func (s *Service) RejectWith(err error) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokeErr = err
	return s
}

// Name implements provider.Provider.
func (s *Service) Name() string { return s.name }

// IsAvailable implements provider.Provider.
func (s *Service) IsAvailable(context.Context) bool { return true }

// Invoke records req and, if a responder is set, delivers its outcome.
func (s *Service) Invoke(ctx context.Context, req analysis.Request) (analysis.Accepted, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond, invokeErr := s.respond, s.invokeErr
	s.mu.Unlock()

	if invokeErr != nil {
		return analysis.Accepted{}, invokeErr
	}
	if respond != nil {
		if err := req.Callback.Complete(ctx, req.CallbackToken, respond(req)); err != nil {
			return analysis.Accepted{}, errors.Internal(err)
		}
	}
	return analysis.Accepted{CallbackToken: req.CallbackToken}, nil
}

// Requests returns every request received so far.
func (s *Service) Requests() []analysis.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]analysis.Request(nil), s.requests...)
}

// Last returns the most recent request.
func (s *Service) Last() (analysis.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return analysis.Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Complete delivers outcome for req through its callback.
func (s *Service) Complete(ctx context.Context, req analysis.Request, outcome execution.Outcome) error {
	return req.Callback.Complete(ctx, req.CallbackToken, outcome)
}
