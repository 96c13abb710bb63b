package workflow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kbukum/mediaflow/errors"
)

func (g *Graph) build(nodes []JobNode) error {
	if len(nodes) == 0 {
		return errors.GraphError("workflow %q has no nodes", g.name)
	}
	for i := range nodes {
		n := nodes[i].clone()
		if n.ID == "" {
			return errors.GraphError("node %d has no id", i)
		}
		if n.ID == InputSource {
			return errors.GraphError("node id %q is reserved", InputSource)
		}
		if _, dup := g.nodes[n.ID]; dup {
			return errors.GraphError("duplicate node id %s", n.ID)
		}
		if err := normalize(&n); err != nil {
			return err
		}
		g.nodes[n.ID] = &n
	}

	for _, id := range g.sortedIDs() {
		for _, next := range g.nodes[id].OnSuccess {
			if next == id {
				return errors.GraphError("node %s lists itself in on_success", id)
			}
			if _, ok := g.nodes[next]; !ok {
				return errors.GraphError("node %s references unknown node %s", id, next)
			}
			if slices.Contains(g.preds[next], id) {
				return errors.GraphError("node %s lists %s twice", id, next)
			}
			g.preds[next] = append(g.preds[next], id)
		}
	}

	checks := []func() error{
		g.checkEndpoints,
		g.buildLevels,
		g.checkReachability,
		g.checkBranchGroups,
		g.checkFanIn,
		g.checkBindings,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func normalize(n *JobNode) error {
	if n.Kind == "" {
		n.Kind = KindJob
	}
	if n.OnFailure == "" {
		n.OnFailure = FailExecution
	}
	if n.Retry.MaxAttempts <= 0 {
		n.Retry.MaxAttempts = 1
	}

	switch n.Kind {
	case KindJob:
		if n.Service == "" {
			return errors.GraphError("job node %s has no service", n.ID)
		}
	case KindStart, KindAggregate:
		if n.Service != "" {
			return errors.GraphError("%s node %s must not name a service", n.Kind, n.ID)
		}
		if n.BestEffort() {
			return errors.GraphError("%s node %s cannot be best-effort", n.Kind, n.ID)
		}
		if n.Kind == KindAggregate && n.Retry.MaxAttempts > 1 {
			return errors.GraphError("aggregate node %s must not retry", n.ID)
		}
	default:
		return errors.GraphError("node %s has unknown kind %q", n.ID, n.Kind)
	}
	if n.OnFailure != FailExecution && n.OnFailure != ContinueBranch {
		return errors.GraphError("node %s has unknown on_failure %q", n.ID, n.OnFailure)
	}
	for _, f := range n.Publish {
		if !slices.Contains(n.Provides, f) {
			return errors.GraphError("node %s publishes %s which it does not provide", n.ID, f)
		}
	}

	bindings, err := parseBindings(n)
	if err != nil {
		return errors.GraphError("%s", err.Error())
	}
	n.bindings = bindings
	return nil
}

func (g *Graph) sortedIDs() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// checkEndpoints requires exactly one root, which is the start node, and exactly one aggregation sink.
func (g *Graph) checkEndpoints() error {
	var roots, starts, aggregates []string
	for _, id := range g.sortedIDs() {
		n := g.nodes[id]
		if len(g.preds[id]) == 0 {
			roots = append(roots, id)
		}
		switch n.Kind {
		case KindStart:
			starts = append(starts, id)
		case KindAggregate:
			aggregates = append(aggregates, id)
		}
	}
	if len(roots) > 1 {
		return errors.GraphError("more than one start node: %v", roots)
	}
	if len(starts) != 1 {
		return errors.GraphError("expected exactly one start node, found %v", starts)
	}
	if len(roots) == 0 || roots[0] != starts[0] {
		return errors.GraphError("start node %s must have no predecessors", starts[0])
	}
	if len(aggregates) != 1 {
		return errors.GraphError("expected exactly one aggregation node, found %v", aggregates)
	}
	if len(g.nodes[aggregates[0]].OnSuccess) > 0 {
		return errors.GraphError("aggregation node %s must be terminal", aggregates[0])
	}
	g.start, g.aggregate = starts[0], aggregates[0]
	return nil
}

// buildLevels runs Kahn's algorithm; leftover nodes mean a cycle.
func (g *Graph) buildLevels() error {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.preds[id])
	}

	var queue []string
	for _, id := range g.sortedIDs() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		g.levels = append(g.levels, queue)
		g.order = append(g.order, queue...)
		visited += len(queue)

		var next []string
		for _, id := range queue {
			for _, dep := range g.nodes[id].OnSuccess {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		slices.Sort(next)
		queue = next
	}

	if visited != len(g.nodes) {
		return errors.GraphError("cycle detected, processed %d of %d nodes", visited, len(g.nodes))
	}
	return nil
}

func (g *Graph) checkReachability() error {
	reaches := map[string]bool{g.aggregate: true}
	for i := len(g.order) - 1; i >= 0; i-- {
		id := g.order[i]
		for _, next := range g.nodes[id].OnSuccess {
			if reaches[next] {
				reaches[id] = true
			}
		}
	}
	for _, id := range g.order {
		if !reaches[id] {
			return errors.GraphError("node %s cannot reach aggregation node %s", id, g.aggregate)
		}
	}
	return nil
}

func (g *Graph) checkBranchGroups() error {
	groupNames := map[string]bool{}
	for gi, group := range g.groups {
		if group.Name == "" || groupNames[group.Name] {
			return errors.GraphError("branch group %d needs a unique name", gi)
		}
		groupNames[group.Name] = true
		if _, ok := g.nodes[group.Join]; !ok {
			return errors.GraphError("branch group %s joins at unknown node %q", group.Name, group.Join)
		}
		if len(group.Branches) == 0 {
			return errors.GraphError("branch group %s has no branches", group.Name)
		}

		branchNames := map[string]bool{}
		for bi, branch := range group.Branches {
			if branch.Name == "" || branchNames[branch.Name] {
				return errors.GraphError("branch %d of group %s needs a unique name", bi, group.Name)
			}
			branchNames[branch.Name] = true
			if len(branch.Nodes) == 0 {
				return errors.GraphError("branch %s of group %s is empty", branch.Name, group.Name)
			}
			for pos, id := range branch.Nodes {
				n, ok := g.nodes[id]
				if !ok {
					return errors.GraphError("branch %s references unknown node %s", branch.Name, id)
				}
				if n.Kind != KindJob {
					return errors.GraphError("branch %s may only contain job nodes, %s is %s", branch.Name, id, n.Kind)
				}
				if _, taken := g.branchOf[id]; taken {
					return errors.GraphError("node %s belongs to more than one branch", id)
				}
				g.branchOf[id] = branchRef{group: gi, branch: bi, pos: pos}

				want := group.Join
				if pos < len(branch.Nodes)-1 {
					want = branch.Nodes[pos+1]
				}
				if !slices.Equal(n.OnSuccess, []string{want}) {
					if pos == len(branch.Nodes)-1 {
						return errors.GraphError("branch %s of group %s terminates at %v, not join %s",
							branch.Name, group.Name, n.OnSuccess, group.Join)
					}
					return errors.GraphError("branch %s breaks its chain at %s", branch.Name, id)
				}
			}
		}

		preds := slices.Sorted(slices.Values(g.preds[group.Join]))
		terminals := slices.Sorted(slices.Values(group.Terminals()))
		if !slices.Equal(preds, terminals) {
			return errors.GraphError("join %s of group %s has predecessors %v, want branch terminals %v",
				group.Join, group.Name, preds, terminals)
		}
	}

	for _, id := range g.sortedIDs() {
		if g.nodes[id].BestEffort() {
			if _, ok := g.branchOf[id]; !ok {
				return errors.GraphError("best-effort node %s is not part of a branch", id)
			}
		}
	}
	return nil
}

// checkFanIn allows several predecessors only where a branch barrier sits.
func (g *Graph) checkFanIn() error {
	for _, id := range g.order {
		if len(g.preds[id]) > 1 {
			if _, ok := g.JoinGroup(id); !ok {
				return errors.GraphError("node %s has predecessors %v but is not a branch group join", id, g.preds[id])
			}
		}
	}
	return nil
}

// checkBindings verifies that every input reads a field its node's ancestors provide.
func (g *Graph) checkBindings() error {
	ancestors := make(map[string]map[string]bool, len(g.nodes))
	for _, id := range g.order {
		set := map[string]bool{}
		for _, p := range g.preds[id] {
			set[p] = true
			for a := range ancestors[p] {
				set[a] = true
			}
		}
		ancestors[id] = set
	}

	for _, id := range g.order {
		for _, b := range g.nodes[id].bindings {
			if b.Node == InputSource {
				if !slices.Contains(InputFields, b.Field) {
					return unknownField(id, b)
				}
				continue
			}
			src, ok := g.nodes[b.Node]
			if !ok || !ancestors[id][b.Node] || !slices.Contains(src.Provides, b.Field) {
				return unknownField(id, b)
			}
		}
	}
	return nil
}

func unknownField(id string, b Binding) error {
	return errors.GraphError("node %s reads unknown predecessor field %s.%s", id, b.Node, b.Field)
}

// Validate reports whether g is well formed.
func (g *Graph) Validate() error {
	nodes := make([]JobNode, 0, len(g.nodes))
	for _, id := range g.sortedIDs() {
		nodes = append(nodes, *g.nodes[id])
	}
	_, err := New(g.name, nodes, g.groups)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", g.name, err)
	}
	return nil
}
