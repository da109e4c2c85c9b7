package inspector

import (
	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// ApplyConnect applies a completed edge from output to input and then
// restores the arity invariants: an output drives at most one input, and
// every composite node exposes exactly one unconnected output.
func ApplyConnect(g *editor.Graph, output graph.OutputID, input graph.InputID) error {
	out, err := g.Output(output)
	if err != nil {
		return err
	}
	owner := out.Node

	// An input that was already connected is being rewired: its previous
	// parent loses a child and needs rebalancing too.
	var prevOwner graph.NodeID
	if prev, ok := g.Connection(input); ok {
		if p, err := g.Output(prev); err == nil {
			prevOwner = p.Node
		}
	}

	if err := g.Connect(output, input); err != nil {
		return err
	}
	for _, other := range g.ConnectionsFrom(output) {
		if other != input {
			g.Disconnect(other)
		}
	}
	if err := Rebalance(g, owner); err != nil {
		return err
	}
	if !prevOwner.IsZero() && prevOwner != owner {
		return Rebalance(g, prevOwner)
	}
	return nil
}

// ApplyDisconnect removes the edge into input and rebalances the composite
// that fed it.
func ApplyDisconnect(g *editor.Graph, input graph.InputID) error {
	prev, ok := g.Disconnect(input)
	if !ok {
		return nil
	}
	p, err := g.Output(prev)
	if err != nil {
		return err
	}
	return Rebalance(g, p.Node)
}

// Rebalance grows or shrinks a composite node's outputs so exactly one is
// unconnected. Surplus unconnected outputs are removed from the end. Other
// nodes are left alone.
func Rebalance(g *editor.Graph, id graph.NodeID) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	t := n.UserData.Template
	if t.Root || t.Behavior.Type() != behavior.Composite {
		return nil
	}

	var unused []graph.OutputID
	for _, out := range n.Outputs {
		if !g.IsConnected(out.ID) {
			unused = append(unused, out.ID)
		}
	}
	if len(unused) == 0 {
		_, err := g.AddOutputParam(id, editor.OutputPort, graph.Flow)
		return err
	}
	for len(unused) > 1 {
		last := unused[len(unused)-1]
		unused = unused[:len(unused)-1]
		if err := g.RemoveOutputParam(last); err != nil {
			return err
		}
	}
	return nil
}
