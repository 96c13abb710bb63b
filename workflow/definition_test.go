package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
name: minimal
nodes:
  - id: Begin
    kind: start
    provides: [key]
    on_success: [Detect]
  - id: Detect
    service: face-detection
    inputs: {key: Begin.key}
    provides: [faces]
    publish: [faces]
    retry: {max_attempts: 4, backoff: {initial: 500ms, max: 5s, factor: 3}}
    timeout: 90s
    on_failure: continue
    on_success: [Done]
  - id: Done
    kind: aggregate
branch_groups:
  - name: fanout
    join: Done
    branches:
      - name: faces
        nodes: [Detect]
`

func TestParseDefinition(t *testing.T) {
	d, err := ParseDefinition([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	g, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n, _ := g.Node("Detect")
	if !n.BestEffort() {
		t.Error("expected best-effort node")
	}
	if n.Retry.MaxAttempts != 4 || n.Retry.Backoff.Factor != 3 || n.Timeout.Seconds() != 90 {
		t.Errorf("unexpected retry/timeout %+v %v", n.Retry, n.Timeout)
	}
	if _, branch, _ := g.BranchOf("Detect"); branch.Mandatory {
		t.Error("branches default to optional")
	}
}

func TestParseDefinition_Invalid(t *testing.T) {
	if _, err := ParseDefinition([]byte("nodes: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadDefinition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDefinition(filepath.Join(dir, "missing.yml"), path)
	if err != nil {
		t.Fatalf("LoadDefinition: %v", err)
	}
	if d.Name != "minimal" {
		t.Errorf("unexpected name %q", d.Name)
	}

	if _, err := LoadDefinition(filepath.Join(dir, "nope.yml")); err == nil || !strings.Contains(err.Error(), "no definition found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestMarshalDefinition_RoundTrip(t *testing.T) {
	d := SentimentAnalysis()
	data, err := MarshalDefinition(d)
	if err != nil {
		t.Fatalf("MarshalDefinition: %v", err)
	}
	back, err := ParseDefinition(data)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if _, err := back.Build(); err != nil {
		t.Errorf("re-parsed definition does not build: %v", err)
	}
}

func TestSentimentAnalysis_FreshCopies(t *testing.T) {
	a := SentimentAnalysis()
	a.Node("FaceDetectionJob").OnFailure = ContinueBranch
	b := SentimentAnalysis()
	if b.Node("FaceDetectionJob").BestEffort() {
		t.Error("edits must not leak between copies")
	}
}

func TestBuild_GraphIsolatedFromDefinition(t *testing.T) {
	d := SentimentAnalysis()
	g, err := d.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	d.Branch("faces").Mandatory = false
	d.BranchGroups[0].Join = "FaceDetectionJob"
	d.Node("TranscriptionJob").OnSuccess[0] = "StartAggregation"
	d.Node("SentimentDetectionJob").Inputs["text"] = "AnalysisStart.key"
	d.Node("FaceDetectionJob").Publish[0] = "landmarks"

	if _, b, _ := g.BranchOf("FaceDetectionJob"); !b.Mandatory {
		t.Error("branch flag changed through the definition")
	}
	if grp, ok := g.JoinGroup("StartAggregation"); !ok || grp.Join != "StartAggregation" {
		t.Errorf("join changed through the definition: %+v", grp)
	}
	if n, _ := g.Node("TranscriptionJob"); n.OnSuccess[0] != "SentimentDetectionJob" {
		t.Errorf("on_success changed through the definition: %v", n.OnSuccess)
	}
	if n, _ := g.Node("SentimentDetectionJob"); n.Inputs["text"] != "TranscriptionJob.text" {
		t.Errorf("inputs changed through the definition: %v", n.Inputs)
	}
	if n, _ := g.Node("FaceDetectionJob"); n.Publish[0] != "faces" {
		t.Errorf("publish changed through the definition: %v", n.Publish)
	}
}

func TestGraph_AccessorsReturnCopies(t *testing.T) {
	g, err := SentimentAnalysis().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g.Groups()[0].Branches[1].Nodes[0] = "Bogus"
	g.Groups()[0].Branches[0].Mandatory = false
	_, b, _ := g.BranchOf("TranscriptionJob")
	b.Nodes[1] = "Bogus"
	n, _ := g.Node("TranscriptionJob")
	n.OnSuccess[0] = "Bogus"
	n.Retry.MaxAttempts = 99
	g.Predecessors("StartAggregation")[0] = "Bogus"

	grp := g.Groups()[0]
	if grp.Branches[1].Nodes[0] != "TranscriptionJob" || !grp.Branches[0].Mandatory {
		t.Errorf("groups mutated through Groups(): %+v", grp)
	}
	if down := g.Downstream("TranscriptionJob"); len(down) != 1 || down[0] != "SentimentDetectionJob" {
		t.Errorf("chain mutated through BranchOf(): %v", down)
	}
	if n, _ := g.Node("TranscriptionJob"); n.OnSuccess[0] != "SentimentDetectionJob" || n.Retry.MaxAttempts != 3 {
		t.Errorf("node mutated through Node(): %+v", n)
	}
	if preds := g.Predecessors("StartAggregation"); preds[0] == "Bogus" {
		t.Errorf("predecessors mutated: %v", preds)
	}
}
