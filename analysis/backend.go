package analysis

import "github.com/kbukum/mediaflow/provider"

// Job is the input of a synchronous backend.
type Job struct {
	ExecutionID string
	NodeID      string
	Attempt     int
	Payload     map[string]any
}

// Backend does the analysis work for one job and returns the node output.
type Backend = provider.RequestResponse[Job, map[string]any]

// stringField reads a required string from the job payload.
func (j Job) stringField(name string) (string, bool) {
	v, ok := j.Payload[name].(string)
	return v, ok && v != ""
}
