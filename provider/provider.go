package provider

import "context"

// Provider is the base interface all backends implement.
type Provider interface {
	// Name returns the provider's unique name.
	Name() string
	// IsAvailable checks if the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// RequestResponse is a backend that takes one input and returns one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Sink is a backend that accepts input with no meaningful output.
type Sink[I any] interface {
	Provider
	Send(ctx context.Context, input I) error
}

// Func adapts a plain function into a RequestResponse provider that is always available.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) RequestResponse[I, O] {
	return &funcRR[I, O]{name: name, fn: fn}
}

type funcRR[I, O any] struct {
	name string
	fn   func(ctx context.Context, input I) (O, error)
}

func (f *funcRR[I, O]) Name() string                                 { return f.name }
func (f *funcRR[I, O]) IsAvailable(context.Context) bool             { return true }
func (f *funcRR[I, O]) Execute(ctx context.Context, in I) (O, error) { return f.fn(ctx, in) }
