package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/graph"
)

func TestNewRootState(t *testing.T) {
	t.Parallel()

	s := NewRootState()
	require.Equal(t, 1, s.Graph.NodeCount())
	root, ok := s.RootNode()
	require.True(t, ok)
	require.Equal(t, Pos{}, s.Positions[root])

	n, err := s.Graph.Node(root)
	require.NoError(t, err)
	require.Equal(t, "Root", n.Label)
	require.Empty(t, n.Inputs)
	require.Len(t, n.Outputs, 1)

	_, err = s.AddNode(RootTemplate(), "", Pos{})
	require.Error(t, err)
}

func TestTemplate_BuildPorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    behavior.Kind
		outputs int
	}{
		{behavior.KindDebug, 0},
		{behavior.KindWait, 0},
		{behavior.KindSelector, 1},
		{behavior.KindAll, 1},
		{behavior.KindInverter, 1},
		{behavior.KindGuard, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			s := NewState()
			id, err := s.AddNode(BehaviorTemplate(behavior.New(tt.kind)), "", Pos{X: 1, Y: 2})
			require.NoError(t, err)
			n, err := s.Graph.Node(id)
			require.NoError(t, err)
			require.Equal(t, tt.kind.Name(), n.Label)
			require.Len(t, n.Inputs, 1)
			require.Equal(t, InputPort, n.Inputs[0].Name)
			require.Len(t, n.Outputs, tt.outputs)
		})
	}
}

func TestState_RemoveAndRaise(t *testing.T) {
	t.Parallel()

	s := NewRootState()
	root, _ := s.RootNode()
	a, err := s.AddNode(BehaviorTemplate(behavior.New(behavior.KindDebug)), "a", Pos{X: 10})
	require.NoError(t, err)
	b, err := s.AddNode(BehaviorTemplate(behavior.New(behavior.KindWait)), "b", Pos{X: 20})
	require.NoError(t, err)

	s.Raise(a)
	require.Equal(t, []graph.NodeID{root, b, a}, s.Order)

	require.NoError(t, s.RemoveNode(a))
	require.Equal(t, []graph.NodeID{root, b}, s.Order)
	_, ok := s.Positions[a]
	require.False(t, ok)

	s.Positions[root] = Pos{X: 5, Y: 5}
	s.PinRoot()
	require.Equal(t, Pos{}, s.Positions[root])
}

// sampleState builds Root -> Sequencer -> {Debug, Guard -> Wait}.
func sampleState(t *testing.T) *State {
	t.Helper()
	s := NewRootState()
	root, _ := s.RootNode()
	seq, err := s.AddNode(BehaviorTemplate(behavior.New(behavior.KindSequencer)), "", Pos{Y: 100})
	require.NoError(t, err)
	dbg, err := s.AddNode(BehaviorTemplate(behavior.New(behavior.KindDebug)), "hello", Pos{X: -50, Y: 200})
	require.NoError(t, err)
	guard := behavior.New(behavior.KindGuard)
	guard.Guard.Condition = "ready"
	grd, err := s.AddNode(BehaviorTemplate(guard), "", Pos{X: 50, Y: 200})
	require.NoError(t, err)
	wait, err := s.AddNode(BehaviorTemplate(behavior.New(behavior.KindWait)), "", Pos{X: 50, Y: 300})
	require.NoError(t, err)

	connect := func(from, to graph.NodeID, port int) {
		fn, err := s.Graph.Node(from)
		require.NoError(t, err)
		tn, err := s.Graph.Node(to)
		require.NoError(t, err)
		require.NoError(t, s.Graph.Connect(fn.Outputs[port].ID, tn.Inputs[0].ID))
	}
	_, err = s.Graph.AddOutputParam(seq, OutputPort, graph.Flow)
	require.NoError(t, err)
	connect(root, seq, 0)
	connect(seq, dbg, 0)
	connect(seq, grd, 1)
	connect(grd, wait, 0)
	s.PanZoom = PanZoom{Pan: Pos{X: 3, Y: 4}, Zoom: 1.5}
	return s
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	s := sampleState(t)
	data, err := Marshal(s)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	want, err := Encode(s)
	require.NoError(t, err)
	got, err := Encode(decoded)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, s.Graph.NodeCount(), decoded.Graph.NodeCount())
	require.Equal(t, s.Graph.ConnectionCount(), decoded.Graph.ConnectionCount())
	require.Len(t, got.Connections, 4)
}

func TestCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	valid := func() *File {
		f, err := Encode(sampleState(t))
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name   string
		mutate func(f *File)
	}{
		{"version", func(f *File) { f.Version = 99 }},
		{"two roots", func(f *File) { f.Nodes[1].Root = true; f.Nodes[1].Behavior = nil }},
		{"no template", func(f *File) { f.Nodes[1].Behavior = nil }},
		{"invalid behavior", func(f *File) { f.Nodes[1].Behavior.Kind = "nope" }},
		{"output out of range", func(f *File) { f.Connections[0].Output.Port = 7 }},
		{"input out of range", func(f *File) { f.Connections[0].Input.Node = -1 }},
		{"duplicate input", func(f *File) { f.Connections = append(f.Connections, f.Connections[0]) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := valid()
			tt.mutate(f)
			_, err := Decode(f)
			require.ErrorIs(t, err, ErrDecode)
		})
	}

	_, err := Unmarshal([]byte("nodes: [oops"))
	require.ErrorIs(t, err, ErrDecode)
}
