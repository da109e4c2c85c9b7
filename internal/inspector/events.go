package inspector

import (
	"errors"
	"fmt"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// Response is an event emitted by the graph editor GUI.
type Response interface {
	response()
}

type (
	// SelectNode marks a node as active.
	SelectNode struct{ Node graph.NodeID }

	// DeselectNode clears the active node.
	DeselectNode struct{}

	// CreateNode adds a behavior node from the palette.
	CreateNode struct {
		Kind  behavior.Kind
		Label string
		Pos   editor.Pos
	}

	// MoveNode drags a node.
	MoveNode struct {
		Node graph.NodeID
		Pos  editor.Pos
	}

	// ConnectEventEnded reports a completed edge.
	ConnectEventEnded struct {
		Output graph.OutputID
		Input  graph.InputID
	}

	// DisconnectEvent reports an edge detached from an input.
	DisconnectEvent struct{ Input graph.InputID }

	// NodeEdited replaces a node's payload.
	NodeEdited struct {
		Node     graph.NodeID
		Behavior behavior.Behavior
	}

	// NameEdited renames a node.
	NameEdited struct {
		Node graph.NodeID
		Name string
	}

	// DeleteNode removes a node. The Root anchor cannot be deleted.
	DeleteNode struct{ Node graph.NodeID }
)

func (SelectNode) response()        {}
func (DeselectNode) response()      {}
func (CreateNode) response()        {}
func (MoveNode) response()          {}
func (ConnectEventEnded) response() {}
func (DisconnectEvent) response()   {}
func (NodeEdited) response()        {}
func (NameEdited) response()        {}
func (DeleteNode) response()        {}

// ErrRootNode is returned for edits the Root anchor does not allow.
var ErrRootNode = errors.New("inspector: operation not allowed on the root node")

// Apply applies one GUI event to an entity.
func (e *Entity) Apply(r Response) error {
	g := e.Editor.Graph
	switch r := r.(type) {
	case SelectNode:
		if _, err := g.Node(r.Node); err != nil {
			return err
		}
		e.Graph.Active = r.Node
		e.Editor.Raise(r.Node)

	case DeselectNode:
		e.Graph.Active = graph.NodeID{}

	case CreateNode:
		if !r.Kind.Known() {
			return fmt.Errorf("create node: %w: unknown kind %q", behavior.ErrInvalid, r.Kind)
		}
		_, err := e.Editor.AddNode(editor.BehaviorTemplate(behavior.New(r.Kind)), r.Label, r.Pos)
		return err

	case MoveNode:
		if _, err := g.Node(r.Node); err != nil {
			return err
		}
		e.Editor.Positions[r.Node] = r.Pos

	case ConnectEventEnded:
		return ApplyConnect(g, r.Output, r.Input)

	case DisconnectEvent:
		return ApplyDisconnect(g, r.Input)

	case NodeEdited:
		n, err := g.Node(r.Node)
		if err != nil {
			return err
		}
		if n.UserData.Template.Root {
			return fmt.Errorf("edit node %s: %w", r.Node, ErrRootNode)
		}
		if err := r.Behavior.Validate(); err != nil {
			return fmt.Errorf("edit node %s: %w", r.Node, err)
		}
		if r.Behavior.Type() != n.UserData.Template.Behavior.Type() {
			return fmt.Errorf("edit node %s: %w: cannot change %s into %s", r.Node, behavior.ErrInvalid,
				n.UserData.Template.Behavior.Type(), r.Behavior.Type())
		}
		n.UserData.Template = editor.BehaviorTemplate(r.Behavior.Clone())

	case NameEdited:
		n, err := g.Node(r.Node)
		if err != nil {
			return err
		}
		n.Label = r.Name

	case DeleteNode:
		return e.deleteNode(r.Node)

	default:
		return fmt.Errorf("inspector: unhandled response %T", r)
	}
	return nil
}

func (e *Entity) deleteNode(id graph.NodeID) error {
	g := e.Editor.Graph
	n, err := g.Node(id)
	if err != nil {
		return err
	}
	if n.UserData.Template.Root {
		return fmt.Errorf("delete node %s: %w", id, ErrRootNode)
	}
	// Parents feeding this node lose an edge, so rebalance them afterwards.
	var parents []graph.NodeID
	for _, in := range n.Inputs {
		if out, ok := g.Connection(in.ID); ok {
			if p, err := g.Output(out); err == nil {
				parents = append(parents, p.Node)
			}
		}
	}
	if err := e.Editor.RemoveNode(id); err != nil {
		return err
	}
	if e.Graph.Active == id {
		e.Graph.Active = graph.NodeID{}
	}
	for _, p := range parents {
		if err := Rebalance(g, p); err != nil {
			return err
		}
	}
	return nil
}
