package logger

import "time"

// Standard field keys for structured logging.
const (
	FieldService     = "service"
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldExecutionID = "execution_id"
	FieldNodeID      = "node_id"
	FieldAttempt     = "attempt"
	FieldBranch      = "branch"
	FieldBucket      = "bucket"
	FieldObjectKey   = "object_key"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldCode        = "code"
	FieldDuration    = "duration_ms"
	FieldOperation   = "operation"
)

// Fields builds a field map from alternating key-value pairs.
//
//	log.Info("node dispatched", logger.Fields("node_id", id, "attempt", 2))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]any {
	return map[string]any{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]any {
	return map[string]any{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}
