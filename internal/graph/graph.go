// Package graph is a generic, typed node graph: nodes own ordered, named input
// and output ports, and connections map each input port to the output port
// feeding it.
//
// Nodes and ports live in generation-checked arenas. Every cross-reference
// (port to owning node, connection to port) is an id lookup, so removing a
// node or port can never leave a dangling pointer behind: stale ids simply
// fail with ErrStale.
package graph

import (
	"errors"
	"fmt"
)

// ErrStale is returned when an id does not refer to a live node or port.
var ErrStale = errors.New("graph: stale or unknown id")

// ErrTypeMismatch is returned when connecting ports of different data types.
var ErrTypeMismatch = errors.New("graph: port data types differ")

// ErrSelfConnection is returned when connecting a node to itself.
var ErrSelfConnection = errors.New("graph: cannot connect a node to itself")

// DataType tags the values carried by a port.
type DataType string

// Flow is the control-flow type used for parent to child tree edges.
const Flow DataType = "flow"

// NodeID identifies a node within one graph.
type NodeID handle

// InputID identifies an input port within one graph.
type InputID handle

// OutputID identifies an output port within one graph.
type OutputID handle

func (id NodeID) String() string   { return handle(id).format("n") }
func (id InputID) String() string  { return handle(id).format("i") }
func (id OutputID) String() string { return handle(id).format("o") }

// IsZero reports whether the id is the zero value, which never refers to a node.
func (id NodeID) IsZero() bool { return !handle(id).valid() }

// NamedInput is an entry in a node's ordered input list.
type NamedInput struct {
	Name string
	ID   InputID
}

// NamedOutput is an entry in a node's ordered output list.
type NamedOutput struct {
	Name string
	ID   OutputID
}

// Node is a graph node carrying user data of type T.
type Node[T any] struct {
	ID       NodeID
	Label    string
	Inputs   []NamedInput
	Outputs  []NamedOutput
	UserData T
}

// InputParam is an input port. Node is a back-reference to the owner.
type InputParam struct {
	ID   InputID
	Node NodeID
	Type DataType
}

// OutputParam is an output port. Node is a back-reference to the owner.
type OutputParam struct {
	ID   OutputID
	Node NodeID
	Type DataType
}

// Graph is the node/port/connection container. The zero value is not usable;
// construct with New.
type Graph[T any] struct {
	nodes       arena[Node[T]]
	inputs      arena[InputParam]
	outputs     arena[OutputParam]
	order       []NodeID
	connections map[InputID]OutputID
}

// New returns an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{connections: make(map[InputID]OutputID)}
}

// AddNode inserts a node and returns its id. If build is non-nil it is called
// with the new id, typically to add the node's ports.
func (g *Graph[T]) AddNode(label string, data T, build func(g *Graph[T], id NodeID)) NodeID {
	id := NodeID(g.nodes.insert(Node[T]{Label: label, UserData: data}))
	n, _ := g.nodes.get(handle(id))
	n.ID = id
	g.order = append(g.order, id)
	if build != nil {
		build(g, id)
	}
	return id
}

// RemoveNode removes a node together with its ports and every connection
// touching them.
func (g *Graph[T]) RemoveNode(id NodeID) error {
	n, ok := g.nodes.get(handle(id))
	if !ok {
		return fmt.Errorf("remove node %s: %w", id, ErrStale)
	}
	for _, in := range append([]NamedInput(nil), n.Inputs...) {
		if err := g.RemoveInputParam(in.ID); err != nil {
			return err
		}
	}
	for _, out := range append([]NamedOutput(nil), n.Outputs...) {
		if err := g.RemoveOutputParam(out.ID); err != nil {
			return err
		}
	}
	g.nodes.remove(handle(id))
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddInputParam appends a named input port to a node.
func (g *Graph[T]) AddInputParam(node NodeID, name string, typ DataType) (InputID, error) {
	n, ok := g.nodes.get(handle(node))
	if !ok {
		return InputID{}, fmt.Errorf("add input %q to %s: %w", name, node, ErrStale)
	}
	id := InputID(g.inputs.insert(InputParam{Node: node, Type: typ}))
	p, _ := g.inputs.get(handle(id))
	p.ID = id
	n.Inputs = append(n.Inputs, NamedInput{Name: name, ID: id})
	return id, nil
}

// AddOutputParam appends a named output port to a node.
func (g *Graph[T]) AddOutputParam(node NodeID, name string, typ DataType) (OutputID, error) {
	n, ok := g.nodes.get(handle(node))
	if !ok {
		return OutputID{}, fmt.Errorf("add output %q to %s: %w", name, node, ErrStale)
	}
	id := OutputID(g.outputs.insert(OutputParam{Node: node, Type: typ}))
	p, _ := g.outputs.get(handle(id))
	p.ID = id
	n.Outputs = append(n.Outputs, NamedOutput{Name: name, ID: id})
	return id, nil
}

// RemoveInputParam removes an input port and its connection, if any.
func (g *Graph[T]) RemoveInputParam(id InputID) error {
	p, ok := g.inputs.get(handle(id))
	if !ok {
		return fmt.Errorf("remove input %s: %w", id, ErrStale)
	}
	if n, ok := g.nodes.get(handle(p.Node)); ok {
		for i, v := range n.Inputs {
			if v.ID == id {
				n.Inputs = append(n.Inputs[:i], n.Inputs[i+1:]...)
				break
			}
		}
	}
	delete(g.connections, id)
	g.inputs.remove(handle(id))
	return nil
}

// RemoveOutputParam removes an output port and every connection it drives.
func (g *Graph[T]) RemoveOutputParam(id OutputID) error {
	p, ok := g.outputs.get(handle(id))
	if !ok {
		return fmt.Errorf("remove output %s: %w", id, ErrStale)
	}
	if n, ok := g.nodes.get(handle(p.Node)); ok {
		for i, v := range n.Outputs {
			if v.ID == id {
				n.Outputs = append(n.Outputs[:i], n.Outputs[i+1:]...)
				break
			}
		}
	}
	for input, output := range g.connections {
		if output == id {
			delete(g.connections, input)
		}
	}
	g.outputs.remove(handle(id))
	return nil
}

// Node looks up a node. The returned pointer stays valid until the node is
// removed.
func (g *Graph[T]) Node(id NodeID) (*Node[T], error) {
	n, ok := g.nodes.get(handle(id))
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrStale)
	}
	return n, nil
}

// Input looks up an input port.
func (g *Graph[T]) Input(id InputID) (*InputParam, error) {
	p, ok := g.inputs.get(handle(id))
	if !ok {
		return nil, fmt.Errorf("input %s: %w", id, ErrStale)
	}
	return p, nil
}

// Output looks up an output port.
func (g *Graph[T]) Output(id OutputID) (*OutputParam, error) {
	p, ok := g.outputs.get(handle(id))
	if !ok {
		return nil, fmt.Errorf("output %s: %w", id, ErrStale)
	}
	return p, nil
}

// Connect makes output feed input. An input has at most one connection, so
// any previous connection into input is replaced.
func (g *Graph[T]) Connect(output OutputID, input InputID) error {
	out, err := g.Output(output)
	if err != nil {
		return err
	}
	in, err := g.Input(input)
	if err != nil {
		return err
	}
	if out.Type != in.Type {
		return fmt.Errorf("connect %s -> %s (%s != %s): %w", output, input, out.Type, in.Type, ErrTypeMismatch)
	}
	if out.Node == in.Node {
		return fmt.Errorf("connect %s -> %s: %w", output, input, ErrSelfConnection)
	}
	g.connections[input] = output
	return nil
}

// Disconnect removes the connection into input, returning the output that fed
// it.
func (g *Graph[T]) Disconnect(input InputID) (OutputID, bool) {
	output, ok := g.connections[input]
	if ok {
		delete(g.connections, input)
	}
	return output, ok
}

// Connection returns the output feeding input.
func (g *Graph[T]) Connection(input InputID) (OutputID, bool) {
	output, ok := g.connections[input]
	return output, ok
}

// ConnectionsFrom returns the inputs fed by output, ordered by node insertion
// order, then port order.
func (g *Graph[T]) ConnectionsFrom(output OutputID) []InputID {
	var inputs []InputID
	for _, nid := range g.order {
		n, _ := g.nodes.get(handle(nid))
		for _, in := range n.Inputs {
			if o, ok := g.connections[in.ID]; ok && o == output {
				inputs = append(inputs, in.ID)
			}
		}
	}
	return inputs
}

// IsConnected reports whether output drives at least one input.
func (g *Graph[T]) IsConnected(output OutputID) bool {
	for _, o := range g.connections {
		if o == output {
			return true
		}
	}
	return false
}

// NodeIDs returns every live node id in insertion order.
func (g *Graph[T]) NodeIDs() []NodeID {
	return append([]NodeID(nil), g.order...)
}

// Connections returns a copy of the connection map.
func (g *Graph[T]) Connections() map[InputID]OutputID {
	out := make(map[InputID]OutputID, len(g.connections))
	for k, v := range g.connections {
		out[k] = v
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph[T]) NodeCount() int { return g.nodes.len() }

// InputCount returns the number of live input ports.
func (g *Graph[T]) InputCount() int { return g.inputs.len() }

// OutputCount returns the number of live output ports.
func (g *Graph[T]) OutputCount() int { return g.outputs.len() }

// ConnectionCount returns the number of connections.
func (g *Graph[T]) ConnectionCount() int { return len(g.connections) }
