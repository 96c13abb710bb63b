package workflow

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Definition is the YAML form of a workflow.
type Definition struct {
	Name         string        `yaml:"name"`
	Nodes        []JobNode     `yaml:"nodes"`
	BranchGroups []BranchGroup `yaml:"branch_groups"`
}

// Build validates the definition and returns the graph.
func (d *Definition) Build() (*Graph, error) {
	return New(d.Name, d.Nodes, d.BranchGroups)
}

// Node returns a pointer to the named node so callers can adjust a
// definition before building it.
func (d *Definition) Node(id string) *JobNode {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Branch returns a pointer to the named branch of any group.
func (d *Definition) Branch(name string) *Branch {
	for gi := range d.BranchGroups {
		for bi := range d.BranchGroups[gi].Branches {
			if d.BranchGroups[gi].Branches[bi].Name == name {
				return &d.BranchGroups[gi].Branches[bi]
			}
		}
	}
	return nil
}

// ParseDefinition decodes a YAML workflow definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("workflow: parsing definition: %w", err)
	}
	return &d, nil
}

// LoadDefinition reads the first of paths that exists and parses it.
func LoadDefinition(paths ...string) (*Definition, error) {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("workflow: reading %s: %w", path, err)
		}
		d, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("workflow: no definition found in %v", paths)
}

//go:embed sentiment_analysis.yaml
var sentimentAnalysisYAML []byte

// SentimentAnalysis returns a fresh copy of the built-in media sentiment
// analysis definition: start, face detection in parallel with
// transcription then sentiment detection, then aggregation.
func SentimentAnalysis() *Definition {
	d, err := ParseDefinition(sentimentAnalysisYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// MarshalDefinition encodes d as YAML.
func MarshalDefinition(d *Definition) ([]byte, error) {
	return yaml.Marshal(d)
}
