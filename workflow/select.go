package workflow

import "github.com/kbukum/mediaflow/errors"

// View is the read-only part of an execution an input selector may see.
type View interface {
	// InputField returns a field of the trigger object (see InputFields).
	InputField(field string) (any, bool)
	// OutputField returns a field of a succeeded node's output.
	OutputField(nodeID, field string) (any, bool)
}

// SelectInput builds the payload for node n from its bindings.
// Graph validation guarantees each binding names an ancestor's declared
// field, so a miss here means the ancestor returned less than it declared.
func SelectInput(n *JobNode, v View) (map[string]any, error) {
	payload := make(map[string]any, len(n.bindings))
	for _, b := range n.bindings {
		var (
			value any
			ok    bool
		)
		if b.Node == InputSource {
			value, ok = v.InputField(b.Field)
		} else {
			value, ok = v.OutputField(b.Node, b.Field)
		}
		if !ok {
			return nil, errors.InvalidInput(b.Name, "missing "+b.Node+"."+b.Field+" for node "+n.ID)
		}
		payload[b.Name] = value
	}
	return payload, nil
}

// MissingProvides returns the declared output fields absent from output.
func MissingProvides(n *JobNode, output map[string]any) []string {
	var missing []string
	for _, f := range n.Provides {
		if _, ok := output[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
