package execution

import "github.com/kbukum/mediaflow/errors"

// Outcome is what a node attempt reports back to the engine.
type Outcome struct {
	// Output holds the node's declared output fields on success.
	Output map[string]any
	// Result replaces the execution result. Only controller steps set it.
	Result map[string]any
	// Err is set when the attempt failed.
	Err error
}

// Success reports a successful attempt.
func Success(output map[string]any) Outcome {
	return Outcome{Output: output}
}

// Failure reports a failed attempt.
func Failure(err error) Outcome {
	if err == nil {
		err = errors.Internal(nil)
	}
	return Outcome{Err: err}
}

// Failed reports whether the attempt failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
