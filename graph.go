package canister

import (
	"fmt"
	"strconv"
	"strings"
)

// GraphNode describes one registration in the dependency graph.
type GraphNode struct {
	// Key is the registration's primary key in display form.
	Key string

	// Keys lists every key the registration offers directly.
	Keys []string

	// Groups lists the value groups the registration feeds.
	Groups []string

	// Lifetime is "singleton", "transient" or "scoped".
	Lifetime string

	// Origin is the constructor's source location, or "value".
	Origin string
}

// GraphEdge is one resolved dependency between two registrations.
type GraphEdge struct {
	From string
	To   string

	// Optional marks an `optional:"true"` dependency.
	Optional bool

	// Group names the value group when the edge collects one.
	Group string
}

// Graph is a snapshot of the container's registrations and the edges its
// dependencies would select. Missing or ambiguous dependencies produce no
// edge; Validate reports those.
type Graph struct {
	Nodes []GraphNode
	Edges []GraphEdge
}

// Graph snapshots the dependency graph for introspection or rendering.
func (c *Container) Graph() *Graph {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := &Graph{}
	for _, p := range c.providers {
		keys, groups := p.offerKeys()
		g.Nodes = append(g.Nodes, GraphNode{
			Key:      p.display(),
			Keys:     keys,
			Groups:   groups,
			Lifetime: p.lifetime.String(),
			Origin:   p.origin,
		})
		for _, d := range p.deps {
			if d.group != "" {
				for _, ref := range c.groups[groupKey{t: d.t, group: d.group}] {
					g.Edges = append(g.Edges, GraphEdge{From: p.display(), To: ref.prov.display(), Group: d.group})
				}
				continue
			}
			ref, err := c.selectOffer(d.key())
			if err != nil {
				continue
			}
			g.Edges = append(g.Edges, GraphEdge{From: p.display(), To: ref.prov.display(), Optional: d.optional})
		}
	}
	return g
}

// DOT renders the graph in Graphviz dot syntax, one node per registration
// labeled with its lifetime, dashed edges for optional and group
// dependencies.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph canister {\n")
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tnode [shape=box];\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "\t%s [label=%s];\n",
			strconv.Quote(n.Key), strconv.Quote(n.Key+"\n"+n.Lifetime))
	}
	for _, e := range g.Edges {
		var attrs []string
		if e.Optional {
			attrs = append(attrs, "style=dashed", `label="optional"`)
		}
		if e.Group != "" {
			attrs = append(attrs, "style=dashed", "label="+strconv.Quote("group "+e.Group))
		}
		fmt.Fprintf(&b, "\t%s -> %s", strconv.Quote(e.From), strconv.Quote(e.To))
		if len(attrs) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(attrs, ", "))
		}
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}
