package workflow

import (
	"slices"
)

// Branch is one chain of nodes inside a branch group.
type Branch struct {
	// Name identifies the branch in results and partial markers.
	Name string `yaml:"name" json:"name"`
	// Nodes is the chain in execution order.
	Nodes []string `yaml:"nodes" json:"nodes"`
	// Mandatory makes aggregation fail when this branch failed.
	Mandatory bool `yaml:"mandatory,omitempty" json:"mandatory,omitempty"`
}

// Terminal returns the last node of the chain.
func (b Branch) Terminal() string {
	return b.Nodes[len(b.Nodes)-1]
}

func (b Branch) clone() Branch {
	b.Nodes = slices.Clone(b.Nodes)
	return b
}

// BranchGroup is a set of chains that all resolve before Join runs.
type BranchGroup struct {
	Name     string   `yaml:"name" json:"name"`
	Join     string   `yaml:"join" json:"join"`
	Branches []Branch `yaml:"branches" json:"branches"`
}

// Terminals returns the terminal node of every branch.
func (g BranchGroup) Terminals() []string {
	out := make([]string, 0, len(g.Branches))
	for _, b := range g.Branches {
		out = append(out, b.Terminal())
	}
	return out
}

func (g BranchGroup) clone() BranchGroup {
	branches := make([]Branch, len(g.Branches))
	for i, b := range g.Branches {
		branches[i] = b.clone()
	}
	g.Branches = branches
	return g
}

func cloneGroups(groups []BranchGroup) []BranchGroup {
	out := make([]BranchGroup, len(groups))
	for i, grp := range groups {
		out[i] = grp.clone()
	}
	return out
}

type branchRef struct {
	group  int
	branch int
	pos    int
}

// Graph is a validated, immutable workflow. It is safe for concurrent use.
type Graph struct {
	name      string
	nodes     map[string]*JobNode
	order     []string
	levels    [][]string
	preds     map[string][]string
	groups    []BranchGroup
	branchOf  map[string]branchRef
	start     string
	aggregate string
}

// New validates nodes and groups and returns the graph. Every problem is
// reported as an INVALID_GRAPH AppError. The graph keeps its own copies, so
// later edits to nodes or groups do not reach it.
func New(name string, nodes []JobNode, groups []BranchGroup) (*Graph, error) {
	g := &Graph{
		name:     name,
		nodes:    make(map[string]*JobNode, len(nodes)),
		preds:    make(map[string][]string),
		groups:   cloneGroups(groups),
		branchOf: make(map[string]branchRef),
	}
	if err := g.build(nodes); err != nil {
		return nil, err
	}
	return g, nil
}

// Name returns the workflow name.
func (g *Graph) Name() string { return g.name }

// Node returns a copy of the node with id.
func (g *Graph) Node(id string) (*JobNode, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	c := n.clone()
	return &c, true
}

// NodeIDs returns all node ids in topological order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.order) }

// Levels groups node ids by dependency depth; nodes of one level may run in parallel.
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for i, l := range g.levels {
		out[i] = slices.Clone(l)
	}
	return out
}

// Start returns the id of the single start node.
func (g *Graph) Start() string { return g.start }

// Aggregation returns the id of the aggregation node.
func (g *Graph) Aggregation() string { return g.aggregate }

// Predecessors returns the nodes whose OnSuccess names id.
func (g *Graph) Predecessors(id string) []string { return slices.Clone(g.preds[id]) }

// Groups returns the branch groups.
func (g *Graph) Groups() []BranchGroup { return cloneGroups(g.groups) }

// BranchOf returns the group and branch a node belongs to.
func (g *Graph) BranchOf(id string) (BranchGroup, Branch, bool) {
	ref, ok := g.branchOf[id]
	if !ok {
		return BranchGroup{}, Branch{}, false
	}
	group := g.groups[ref.group].clone()
	return group, group.Branches[ref.branch], true
}

// JoinGroup returns the group whose barrier releases id.
func (g *Graph) JoinGroup(id string) (BranchGroup, bool) {
	for _, group := range g.groups {
		if group.Join == id {
			return group.clone(), true
		}
	}
	return BranchGroup{}, false
}

// Downstream returns the nodes after id in its branch chain.
func (g *Graph) Downstream(id string) []string {
	ref, ok := g.branchOf[id]
	if !ok {
		return nil
	}
	chain := g.groups[ref.group].Branches[ref.branch].Nodes
	return slices.Clone(chain[ref.pos+1:])
}
