// Package editor holds the persisted editor state of one behavior file: the
// node graph, node positions, draw order and the viewport.
package editor

import (
	"fmt"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// Port names used by every template.
const (
	InputPort  = "A"
	OutputPort = "B"
)

// Template is the per-node payload: either the Root anchor or a behavior.
type Template struct {
	Root     bool
	Behavior behavior.Behavior
}

// RootTemplate returns the Root anchor template.
func RootTemplate() Template { return Template{Root: true} }

// BehaviorTemplate returns a template carrying b.
func BehaviorTemplate(b behavior.Behavior) Template { return Template{Behavior: b} }

// IsRoot reports whether t is the Root anchor.
func (t Template) IsRoot() bool { return t.Root }

// Label is the default node label for the template.
func (t Template) Label() string {
	if t.Root {
		return "Root"
	}
	return t.Behavior.Kind.Name()
}

// BuildPorts adds the ports a freshly created node of this template starts
// with: Root has one output, every behavior has one input, and composites and
// decorators have one output.
func (t Template) BuildPorts(g *Graph, id graph.NodeID) error {
	if t.Root {
		_, err := g.AddOutputParam(id, OutputPort, graph.Flow)
		return err
	}
	if _, err := g.AddInputParam(id, InputPort, graph.Flow); err != nil {
		return err
	}
	switch t.Behavior.Type() {
	case behavior.Composite, behavior.Decorator:
		if _, err := g.AddOutputParam(id, OutputPort, graph.Flow); err != nil {
			return err
		}
	}
	return nil
}

// NodeData is the user data stored on every graph node. State is the
// execution state last overlaid from telemetry; nil means nothing to display.
type NodeData struct {
	Template Template
	State    *behavior.Status
}

// Graph is the node graph specialized to editor node data.
type Graph = graph.Graph[NodeData]

// Pos is a node position in graph space.
type Pos struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// PanZoom is the editor viewport.
type PanZoom struct {
	Pan  Pos     `yaml:"pan"`
	Zoom float32 `yaml:"zoom"`
}

// State is everything the editor persists for a behavior file.
type State struct {
	Graph     *Graph
	Positions map[graph.NodeID]Pos
	// Order is the draw order, back to front.
	Order   []graph.NodeID
	PanZoom PanZoom
}

// NewState returns an empty editor state.
func NewState() *State {
	return &State{
		Graph:     graph.New[NodeData](),
		Positions: make(map[graph.NodeID]Pos),
		PanZoom:   PanZoom{Zoom: 1},
	}
}

// NewRootState returns an editor state holding only a Root node at the
// origin, which is how every new file starts.
func NewRootState() *State {
	s := NewState()
	if _, err := s.AddNode(RootTemplate(), "", Pos{}); err != nil {
		panic(err)
	}
	return s
}

// AddNode creates a node from the template with its initial ports. An empty
// label defaults to the template's label.
func (s *State) AddNode(t Template, label string, pos Pos) (graph.NodeID, error) {
	if t.Root {
		if _, ok := s.RootNode(); ok {
			return graph.NodeID{}, fmt.Errorf("editor: graph already has a root node")
		}
	}
	if label == "" {
		label = t.Label()
	}
	var buildErr error
	id := s.Graph.AddNode(label, NodeData{Template: t}, func(g *Graph, id graph.NodeID) {
		buildErr = t.BuildPorts(g, id)
	})
	if buildErr != nil {
		_ = s.Graph.RemoveNode(id)
		return graph.NodeID{}, buildErr
	}
	s.Positions[id] = pos
	s.Order = append(s.Order, id)
	return id, nil
}

// RemoveNode deletes a node, its ports, its connections and its layout.
func (s *State) RemoveNode(id graph.NodeID) error {
	if err := s.Graph.RemoveNode(id); err != nil {
		return err
	}
	delete(s.Positions, id)
	for i, v := range s.Order {
		if v == id {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			break
		}
	}
	return nil
}

// Raise moves a node to the front of the draw order.
func (s *State) Raise(id graph.NodeID) {
	for i, v := range s.Order {
		if v == id {
			s.Order = append(append(s.Order[:i], s.Order[i+1:]...), id)
			return
		}
	}
}

// RootNode finds the Root anchor.
func (s *State) RootNode() (graph.NodeID, bool) {
	for _, id := range s.Graph.NodeIDs() {
		n, err := s.Graph.Node(id)
		if err == nil && n.UserData.Template.Root {
			return id, true
		}
	}
	return graph.NodeID{}, false
}

// PinRoot moves the Root anchor back to the origin.
func (s *State) PinRoot() {
	if id, ok := s.RootNode(); ok {
		s.Positions[id] = Pos{}
	}
}
