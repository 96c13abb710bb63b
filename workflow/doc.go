// Package workflow models the static analysis workflow: job nodes, their
// retry policies and data bindings, and branch groups that fan out and join.
//
// A Graph is validated once at construction and never changes afterwards,
// so one instance is shared by every execution. Validation rejects graphs
// with more than one start node, cycles, branch chains that do not end at
// their group's join, fan-in outside a join, and inputs that read a field no
// ancestor provides.
//
//	def := workflow.SentimentAnalysis()
//	def.Node("FaceDetectionJob").OnFailure = workflow.ContinueBranch
//	def.Branch("faces").Mandatory = false
//	g, err := def.Build()
package workflow
