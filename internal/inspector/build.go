package inspector

import (
	"fmt"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// Layout spacing for BuildGraph, in graph units.
const (
	columnWidth = 180
	rowHeight   = 120
)

// BuildGraph creates the editor state for a tree: a Root anchor connected to a
// fresh node per tree node, laid out top-down with leaves spread across
// columns. Composite nodes end with their spare output.
func BuildGraph(tree behavior.Tree) (*editor.State, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	s := editor.NewRootState()
	root, _ := s.RootNode()
	rn, err := s.Graph.Node(root)
	if err != nil {
		return nil, err
	}
	b := builder{s: s}
	child, err := b.build(tree, 1)
	if err != nil {
		return nil, err
	}
	if err := ApplyConnect(s.Graph, rn.Outputs[0].ID, child); err != nil {
		return nil, err
	}
	return s, nil
}

type builder struct {
	s      *editor.State
	column int
}

// build adds the subtree and returns the input port of its top node.
func (b *builder) build(t behavior.Tree, depth int) (graph.InputID, error) {
	switch t.Behavior.Type() {
	case behavior.Action:
		if len(t.Children) > 0 {
			return graph.InputID{}, fmt.Errorf("%w: action %q has children", behavior.ErrInvalid, t.Label)
		}
	case behavior.Decorator:
		if len(t.Children) > 1 {
			return graph.InputID{}, fmt.Errorf("%w: decorator %q has %d children", behavior.ErrInvalid, t.Label, len(t.Children))
		}
	}

	id, err := b.s.AddNode(editor.BehaviorTemplate(t.Behavior.Clone()), t.Label, editor.Pos{})
	if err != nil {
		return graph.InputID{}, err
	}
	g := b.s.Graph

	first := b.column
	for _, c := range t.Children {
		in, err := b.build(c, depth+1)
		if err != nil {
			return graph.InputID{}, err
		}
		n, err := g.Node(id)
		if err != nil {
			return graph.InputID{}, err
		}
		// The last output is always the free one.
		if err := ApplyConnect(g, n.Outputs[len(n.Outputs)-1].ID, in); err != nil {
			return graph.InputID{}, err
		}
	}
	if len(t.Children) == 0 {
		b.column++
	}
	center := float32(first+b.column-1) / 2
	b.s.Positions[id] = editor.Pos{X: center * columnWidth, Y: float32(depth * rowHeight)}

	n, err := g.Node(id)
	if err != nil {
		return graph.InputID{}, err
	}
	return n.Inputs[0].ID, nil
}
