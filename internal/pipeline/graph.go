//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
)

// End is the pseudo-node that terminates a run.
const End = "__end__"

// StageFunc runs one stage against the request context.
type StageFunc func(ctx context.Context, rc *RequestContext) StageResult

// Router picks the next node from the request context. It must not
// perform I/O.
type Router func(rc *RequestContext) string

type node struct {
	name    string
	run     StageFunc
	next    string   // Unconditional successor
	route   Router   // Conditional successor
	targets []string // Declared router targets
}

// Graph is a validated, acyclic stage graph.
type Graph struct {
	entry string
	nodes map[string]*node
	order []string
}

// GraphBuilder assembles a Graph.
type GraphBuilder struct {
	entry string
	nodes map[string]*node
	order []string
	errs  []error
}

// NewGraphBuilder starts a graph whose runs begin at entry.
func NewGraphBuilder(entry string) *GraphBuilder {
	return &GraphBuilder{entry: entry, nodes: make(map[string]*node)}
}

// AddNode registers a stage.
func (b *GraphBuilder) AddNode(name string, run StageFunc) *GraphBuilder {
	if name == End {
		b.errs = append(b.errs, fmt.Errorf("node name %q is reserved", End))
		return b
	}
	if _, ok := b.nodes[name]; ok {
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
		return b
	}
	b.nodes[name] = &node{name: name, run: run}
	b.order = append(b.order, name)
	return b
}

// AddEdge adds an unconditional edge.
func (b *GraphBuilder) AddEdge(from, to string) *GraphBuilder {
	n, ok := b.outgoing(from)
	if ok {
		n.next = to
	}
	return b
}

// AddConditionalEdge routes from a node through router, which may only
// return one of targets.
func (b *GraphBuilder) AddConditionalEdge(from string, router Router, targets ...string) *GraphBuilder {
	n, ok := b.outgoing(from)
	if ok {
		n.route = router
		n.targets = targets
	}
	return b
}

func (b *GraphBuilder) outgoing(from string) (*node, bool) {
	n, ok := b.nodes[from]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("edge from unknown node %q", from))
		return nil, false
	}
	if n.next != "" || n.route != nil {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an outgoing edge", from))
		return nil, false
	}
	return n, true
}

// Build validates the graph: every node has one outgoing edge, every edge
// targets a known node or End, every node is reachable from the entry, the
// graph is acyclic and exactly one node ends the run unconditionally.
func (b *GraphBuilder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("entry node %q is not defined", b.entry)
	}

	terminals := 0
	for _, name := range b.order {
		n := b.nodes[name]
		switch {
		case n.route != nil:
			if len(n.targets) == 0 {
				return nil, fmt.Errorf("router on %q declares no targets", name)
			}
			for _, t := range n.targets {
				if err := b.checkTarget(name, t); err != nil {
					return nil, err
				}
			}
		case n.next != "":
			if err := b.checkTarget(name, n.next); err != nil {
				return nil, err
			}
			if n.next == End {
				terminals++
			}
		default:
			return nil, fmt.Errorf("node %q has no outgoing edge", name)
		}
	}
	if terminals != 1 {
		return nil, fmt.Errorf("graph must have exactly one terminal node, found %d", terminals)
	}

	// Depth-first search for cycles and reachability.
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(b.nodes))
	var visit func(name string) error
	visit = func(name string) error {
		if name == End {
			return nil
		}
		switch state[name] {
		case visiting:
			return fmt.Errorf("graph contains a cycle through %q", name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, t := range b.nodes[name].successors() {
			if err := visit(t); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	if err := visit(b.entry); err != nil {
		return nil, err
	}
	for _, name := range b.order {
		if state[name] != done {
			return nil, fmt.Errorf("node %q is unreachable from %q", name, b.entry)
		}
	}

	return &Graph{entry: b.entry, nodes: b.nodes, order: b.order}, nil
}

func (b *GraphBuilder) checkTarget(from, to string) error {
	if to == End {
		return nil
	}
	if _, ok := b.nodes[to]; !ok {
		return fmt.Errorf("edge from %q targets unknown node %q", from, to)
	}
	return nil
}

func (n *node) successors() []string {
	if n.route != nil {
		return n.targets
	}
	return []string{n.next}
}

// Nodes returns the node names in the order they were added.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// next returns the successor of n for the current context.
func (g *Graph) next(n *node, rc *RequestContext) (string, error) {
	if n.route == nil {
		return n.next, nil
	}
	target := n.route(rc)
	for _, t := range n.targets {
		if t == target {
			return target, nil
		}
	}
	return "", fmt.Errorf("router on %q returned undeclared target %q", n.name, target)
}

// continueUnlessError routes to End when the context carries a soft error
// and to next otherwise.
func continueUnlessError(next string) Router {
	return func(rc *RequestContext) string {
		if rc.HasError {
			return End
		}
		return next
	}
}
