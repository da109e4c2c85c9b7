package behavior

import (
	"fmt"
)

// Tree is a node of a Behavior Tree: a labelled payload owning its children
// by value.
type Tree struct {
	Label    string   `yaml:"label"`
	Behavior Behavior `yaml:"behavior"`
	Children []Tree   `yaml:"children,omitempty"`
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	out := Tree{Label: t.Label, Behavior: t.Behavior.Clone()}
	if len(t.Children) > 0 {
		out.Children = make([]Tree, len(t.Children))
		for i, c := range t.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Len returns the number of nodes in the tree.
func (t Tree) Len() int {
	n := 1
	for _, c := range t.Children {
		n += c.Len()
	}
	return n
}

// Walk visits the tree depth-first, pre-order. path holds the child indexes
// leading to node. Returning false from fn stops the walk.
func (t Tree) Walk(fn func(path []int, node Tree) bool) {
	t.walk(nil, fn)
}

func (t Tree) walk(path []int, fn func(path []int, node Tree) bool) bool {
	if !fn(path, t) {
		return false
	}
	for i, c := range t.Children {
		if !c.walk(append(path[:len(path):len(path)], i), fn) {
			return false
		}
	}
	return true
}

// Status is the execution state of a behavior node, as last observed.
type Status int

const (
	Idle Status = iota
	Running
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case Idle, Running, Success, Failure:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("behavior: invalid status %d", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "success":
		*s = Success
	case "failure":
		*s = Failure
	default:
		return fmt.Errorf("behavior: invalid status %q", text)
	}
	return nil
}

// Telemetry mirrors the shape of the Tree it reports on. Behavior is the
// payload as last observed, or nil if the node has not been observed yet.
type Telemetry struct {
	State    Status      `yaml:"state"`
	Behavior *Behavior   `yaml:"behavior,omitempty"`
	Children []Telemetry `yaml:"children,omitempty"`
}

// Len returns the number of nodes in the telemetry tree.
func (t Telemetry) Len() int {
	n := 1
	for _, c := range t.Children {
		n += c.Len()
	}
	return n
}
