package editor

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

// FileVersion is the current persisted format version.
const FileVersion = 1

// ErrDecode is wrapped by every failure to decode a persisted file.
var ErrDecode = errors.New("editor: decode")

// File is the persisted form of a State. Nodes are listed in draw order and
// connections refer to nodes and ports by index, since handles are only
// meaningful within one in-memory graph.
type File struct {
	Version     int              `yaml:"version"`
	PanZoom     PanZoom          `yaml:"pan_zoom"`
	Nodes       []FileNode       `yaml:"nodes"`
	Connections []FileConnection `yaml:"connections,omitempty"`
}

// FileNode is one persisted node.
type FileNode struct {
	Label    string             `yaml:"label"`
	Position Pos                `yaml:"position"`
	Root     bool               `yaml:"root,omitempty"`
	Behavior *behavior.Behavior `yaml:"behavior,omitempty"`
	Inputs   []FilePort         `yaml:"inputs,omitempty"`
	Outputs  []FilePort         `yaml:"outputs,omitempty"`
}

// FilePort is one persisted port.
type FilePort struct {
	Name string         `yaml:"name"`
	Type graph.DataType `yaml:"type"`
}

// PortRef addresses a port by node index and port index.
type PortRef struct {
	Node int `yaml:"node"`
	Port int `yaml:"port"`
}

// FileConnection is one persisted edge.
type FileConnection struct {
	Output PortRef `yaml:"output"`
	Input  PortRef `yaml:"input"`
}

// Encode converts the state into its persisted form.
func Encode(s *State) (*File, error) {
	f := &File{Version: FileVersion, PanZoom: s.PanZoom}

	nodeIndex := make(map[graph.NodeID]int, len(s.Order))
	inputIndex := make(map[graph.InputID]PortRef)
	outputIndex := make(map[graph.OutputID]PortRef)

	for i, id := range s.Order {
		n, err := s.Graph.Node(id)
		if err != nil {
			return nil, fmt.Errorf("encode node %d: %w", i, err)
		}
		fn := FileNode{
			Label:    n.Label,
			Position: s.Positions[id],
			Root:     n.UserData.Template.Root,
		}
		if !fn.Root {
			b := n.UserData.Template.Behavior.Clone()
			fn.Behavior = &b
		}
		for p, in := range n.Inputs {
			param, err := s.Graph.Input(in.ID)
			if err != nil {
				return nil, fmt.Errorf("encode node %d input %q: %w", i, in.Name, err)
			}
			fn.Inputs = append(fn.Inputs, FilePort{Name: in.Name, Type: param.Type})
			inputIndex[in.ID] = PortRef{Node: i, Port: p}
		}
		for p, out := range n.Outputs {
			param, err := s.Graph.Output(out.ID)
			if err != nil {
				return nil, fmt.Errorf("encode node %d output %q: %w", i, out.Name, err)
			}
			fn.Outputs = append(fn.Outputs, FilePort{Name: out.Name, Type: param.Type})
			outputIndex[out.ID] = PortRef{Node: i, Port: p}
		}
		nodeIndex[id] = i
		f.Nodes = append(f.Nodes, fn)
	}
	if len(nodeIndex) != s.Graph.NodeCount() {
		return nil, fmt.Errorf("encode: draw order lists %d of %d nodes", len(nodeIndex), s.Graph.NodeCount())
	}

	// Walk inputs in file order so the output is deterministic.
	for i, id := range s.Order {
		n, _ := s.Graph.Node(id)
		for p, in := range n.Inputs {
			out, ok := s.Graph.Connection(in.ID)
			if !ok {
				continue
			}
			ref, ok := outputIndex[out]
			if !ok {
				return nil, fmt.Errorf("encode: connection into node %d from unknown output %s", i, out)
			}
			f.Connections = append(f.Connections, FileConnection{Output: ref, Input: PortRef{Node: i, Port: p}})
		}
	}
	return f, nil
}

// Decode rebuilds a state from its persisted form, allocating fresh handles.
func Decode(f *File) (*State, error) {
	if f.Version != FileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDecode, f.Version)
	}
	s := NewState()
	s.PanZoom = f.PanZoom

	inputs := make([][]graph.InputID, len(f.Nodes))
	outputs := make([][]graph.OutputID, len(f.Nodes))
	roots := 0
	for i, fn := range f.Nodes {
		var t Template
		switch {
		case fn.Root && fn.Behavior != nil:
			return nil, fmt.Errorf("%w: node %d is both root and behavior", ErrDecode, i)
		case fn.Root:
			roots++
			t = RootTemplate()
		case fn.Behavior != nil:
			if err := fn.Behavior.Validate(); err != nil {
				return nil, fmt.Errorf("%w: node %d: %w", ErrDecode, i, err)
			}
			t = BehaviorTemplate(fn.Behavior.Clone())
		default:
			return nil, fmt.Errorf("%w: node %d has no template", ErrDecode, i)
		}
		if roots > 1 {
			return nil, fmt.Errorf("%w: more than one root node", ErrDecode)
		}

		var buildErr error
		id := s.Graph.AddNode(fn.Label, NodeData{Template: t}, func(g *Graph, id graph.NodeID) {
			for _, p := range fn.Inputs {
				in, err := g.AddInputParam(id, p.Name, p.Type)
				if err != nil {
					buildErr = err
					return
				}
				inputs[i] = append(inputs[i], in)
			}
			for _, p := range fn.Outputs {
				out, err := g.AddOutputParam(id, p.Name, p.Type)
				if err != nil {
					buildErr = err
					return
				}
				outputs[i] = append(outputs[i], out)
			}
		})
		if buildErr != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrDecode, i, buildErr)
		}
		s.Positions[id] = fn.Position
		s.Order = append(s.Order, id)
	}

	for i, c := range f.Connections {
		if c.Output.Node < 0 || c.Output.Node >= len(outputs) || c.Output.Port < 0 || c.Output.Port >= len(outputs[c.Output.Node]) {
			return nil, fmt.Errorf("%w: connection %d: output %+v out of range", ErrDecode, i, c.Output)
		}
		if c.Input.Node < 0 || c.Input.Node >= len(inputs) || c.Input.Port < 0 || c.Input.Port >= len(inputs[c.Input.Node]) {
			return nil, fmt.Errorf("%w: connection %d: input %+v out of range", ErrDecode, i, c.Input)
		}
		in := inputs[c.Input.Node][c.Input.Port]
		if _, dup := s.Graph.Connection(in); dup {
			return nil, fmt.Errorf("%w: connection %d: input %+v already connected", ErrDecode, i, c.Input)
		}
		if err := s.Graph.Connect(outputs[c.Output.Node][c.Output.Port], in); err != nil {
			return nil, fmt.Errorf("%w: connection %d: %w", ErrDecode, i, err)
		}
	}
	return s, nil
}

// Marshal serializes the state as YAML.
func Marshal(s *State) ([]byte, error) {
	f, err := Encode(s)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(f)
}

// Unmarshal parses YAML produced by Marshal.
func Unmarshal(data []byte) (*State, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return Decode(&f)
}
