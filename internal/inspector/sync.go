package inspector

import (
	"fmt"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// RootChild finds the node driven by the Root anchor's first connected Flow
// output. That node is the root of the executable tree; the anchor itself is
// never translated.
func RootChild(g *editor.Graph) (graph.NodeID, bool) {
	for _, id := range g.NodeIDs() {
		n, err := g.Node(id)
		if err != nil || !n.UserData.Template.Root {
			continue
		}
		for _, out := range n.Outputs {
			if child, ok := flowChild(g, out.ID); ok {
				return child, true
			}
		}
		return graph.NodeID{}, false
	}
	return graph.NodeID{}, false
}

// flowChild returns the node owning the first Flow input fed by output.
func flowChild(g *editor.Graph, output graph.OutputID) (graph.NodeID, bool) {
	for _, in := range g.ConnectionsFrom(output) {
		p, err := g.Input(in)
		if err == nil && p.Type == graph.Flow {
			return p.Node, true
		}
	}
	return graph.NodeID{}, false
}

// children lists a node's children, one per connected output port, in port
// order.
func children(g *editor.Graph, n *graph.Node[editor.NodeData]) []graph.NodeID {
	var out []graph.NodeID
	for _, o := range n.Outputs {
		if child, ok := flowChild(g, o.ID); ok {
			out = append(out, child)
		}
	}
	return out
}

// Children lists the nodes driven by id's outputs, in port order.
func Children(g *editor.Graph, id graph.NodeID) ([]graph.NodeID, error) {
	n, err := g.Node(id)
	if err != nil {
		return nil, err
	}
	return children(g, n), nil
}

// GraphToBehavior builds the Behavior Tree rooted at id, depth first. A
// disconnected output contributes no child. Reaching a node twice (a cycle)
// is an error.
//
// It panics if id is the Root anchor: callers start from RootChild.
func GraphToBehavior(g *editor.Graph, id graph.NodeID) (behavior.Tree, error) {
	return graphToBehavior(g, id, make(map[graph.NodeID]bool))
}

func graphToBehavior(g *editor.Graph, id graph.NodeID, visiting map[graph.NodeID]bool) (behavior.Tree, error) {
	n, err := g.Node(id)
	if err != nil {
		return behavior.Tree{}, err
	}
	if n.UserData.Template.Root {
		panic(fmt.Sprintf("inspector: cannot convert root node %s to a behavior", id))
	}
	if visiting[id] {
		return behavior.Tree{}, fmt.Errorf("%w at node %s (%s)", ErrCycle, id, n.Label)
	}
	visiting[id] = true
	defer delete(visiting, id)

	tree := behavior.Tree{Label: n.Label, Behavior: n.UserData.Template.Behavior.Clone()}
	for _, child := range children(g, n) {
		c, err := graphToBehavior(g, child, visiting)
		if err != nil {
			return behavior.Tree{}, err
		}
		tree.Children = append(tree.Children, c)
	}
	return tree, nil
}

// BehaviorToGraph writes the tree's payloads back onto the graph node by node,
// clearing any displayed execution state. Children are paired by position and
// the walk stops at the shorter of the two lists; graph shape is never
// changed.
func BehaviorToGraph(g *editor.Graph, id graph.NodeID, tree behavior.Tree) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	n.UserData.Template = editor.BehaviorTemplate(tree.Behavior.Clone())
	n.UserData.State = nil

	kids := children(g, n)
	for i := 0; i < len(kids) && i < len(tree.Children); i++ {
		if err := BehaviorToGraph(g, kids[i], tree.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// TelemetryToGraph overlays telemetry onto the graph. Nodes whose telemetry
// carries a payload snapshot take that payload and display its state; other
// nodes are left alone, but their children are still visited. Pairing is by
// position, stopping at the shorter list.
func TelemetryToGraph(g *editor.Graph, id graph.NodeID, t behavior.Telemetry) error {
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	if t.Behavior != nil {
		state := t.State
		n.UserData.Template = editor.BehaviorTemplate(t.Behavior.Clone())
		n.UserData.State = &state
	}

	kids := children(g, n)
	for i := 0; i < len(kids) && i < len(t.Children); i++ {
		if err := TelemetryToGraph(g, kids[i], t.Children[i]); err != nil {
			return err
		}
	}
	return nil
}
