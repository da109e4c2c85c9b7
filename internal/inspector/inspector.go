// Package inspector implements the editor side of a behavior-tree inspector
// session: the per-file lifecycle state machine, the synchronization between
// editable node graphs and Behavior Trees, and the invariants the graph keeps
// while the user edits it.
//
// An Inspector is single-threaded. Update is the scheduling tick: it advances
// the selected item one step and applies every message the backend has sent
// since the previous tick. Nothing blocks.
package inspector

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
	"github.com/joeycumines/bt-inspector/internal/protocol"
	"github.com/joeycumines/bt-inspector/internal/store"
)

var (
	// ErrNoRootChild is reported when running a graph whose Root anchor has no
	// connected child.
	ErrNoRootChild = errors.New("inspector: root node has no child")

	// ErrCycle is returned when a graph is not a tree.
	ErrCycle = errors.New("inspector: graph contains a cycle")

	// ErrUnknownFile is returned for actions on a file id with no item.
	ErrUnknownFile = errors.New("inspector: unknown file")

	// ErrInvalidTransition is returned when a user action is not allowed in
	// the item's current state.
	ErrInvalidTransition = errors.New("inspector: invalid state transition")

	// ErrNoEntity is returned when an item has no editor state yet.
	ErrNoEntity = errors.New("inspector: file has no editor state")
)

// State is the lifecycle state of one file item.
type State int

const (
	New State = iota
	Editing
	Load
	Loading
	Save
	Saving
	Run
	Starting
	Running
	Stop
	Stopping
)

func (s State) String() string {
	switch s {
	case New:
		return "New"
	case Editing:
		return "Editing"
	case Load:
		return "Load"
	case Loading:
		return "Loading"
	case Save:
		return "Save"
	case Saving:
		return "Saving"
	case Run:
		return "Run"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stop:
		return "Stop"
	case Stopping:
		return "Stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HasEntity reports whether an item in this state owns editor state.
func (s State) HasEntity() bool {
	switch s {
	case New, Load, Loading:
		return false
	default:
		return true
	}
}

// GraphState is per-entity editor state that is not persisted.
type GraphState struct {
	// Active is the selected node, or the zero id.
	Active graph.NodeID
	// Root caches the Root anchor, refreshed every tick.
	Root graph.NodeID
}

// Entity is the editor-side object backing an open file.
type Entity struct {
	Editor *editor.State
	Graph  GraphState
}

func newEntity(s *editor.State) *Entity {
	e := &Entity{Editor: s}
	e.Graph.Root, _ = s.RootNode()
	return e
}

// Item is one known behavior file.
type Item struct {
	ID     protocol.FileID
	Name   protocol.FileName
	State  State
	Entity *Entity
	// Collapsed is a display flag.
	Collapsed bool
	// Behavior is the tree sent by the last Run, kept so that Stopped can
	// write its final payloads back onto the graph.
	Behavior *behavior.Tree
	// Err is the last error reported for this item, cleared by the next
	// successful user action.
	Err error
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// WithIDGenerator sets the file id source used by NewFile.
func WithIDGenerator(f func() protocol.FileID) Option {
	return func(i *Inspector) { i.newID = f }
}

// Inspector is one editor session: the known files and the selection.
type Inspector struct {
	client   *protocol.Client
	logger   *slog.Logger
	newID    func() protocol.FileID
	items    map[protocol.FileID]*Item
	selected *protocol.FileID
}

// NewInspector returns an empty session talking to the backend through client.
func NewInspector(client *protocol.Client, opts ...Option) *Inspector {
	i := &Inspector{
		client: client,
		logger: slog.Default(),
		newID:  protocol.NewFileID,
		items:  make(map[protocol.FileID]*Item),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewFile registers a new, empty file and selects it. The next tick creates
// its editor state.
func (i *Inspector) NewFile() protocol.FileID {
	id := i.newID()
	i.items[id] = &Item{ID: id, Name: protocol.DefaultFileName(id), State: New}
	i.selected = &id
	return id
}

// Select makes id the item advanced by Update.
func (i *Inspector) Select(id protocol.FileID) error {
	if _, ok := i.items[id]; !ok {
		return fmt.Errorf("select %s: %w", id, ErrUnknownFile)
	}
	i.selected = &id
	return nil
}

// Close clears the selection. The item itself is kept.
func (i *Inspector) Close() {
	i.selected = nil
}

// Selected returns the selected file id.
func (i *Inspector) Selected() (protocol.FileID, bool) {
	if i.selected == nil {
		return "", false
	}
	return *i.selected, true
}

// Item returns the item for id.
func (i *Inspector) Item(id protocol.FileID) (*Item, bool) {
	item, ok := i.items[id]
	return item, ok
}

// Items returns every item sorted by name, then id.
func (i *Inspector) Items() []*Item {
	items := make([]*Item, 0, len(i.items))
	for _, item := range i.items {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b *Item) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return items
}

func (i *Inspector) transition(id protocol.FileID, from []State, to State) error {
	item, ok := i.items[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", to, id, ErrUnknownFile)
	}
	if !slices.Contains(from, item.State) {
		return fmt.Errorf("%s %s from %s: %w", to, id, item.State, ErrInvalidTransition)
	}
	item.State = to
	item.Err = nil
	return nil
}

// Save requests the file be persisted on the next tick.
func (i *Inspector) Save(id protocol.FileID) error {
	return i.transition(id, []State{Editing}, Save)
}

// Run requests the file's tree be executed on the next tick.
func (i *Inspector) Run(id protocol.FileID) error {
	return i.transition(id, []State{Editing}, Run)
}

// Stop requests the running tree be stopped on the next tick.
func (i *Inspector) Stop(id protocol.FileID) error {
	return i.transition(id, []State{Running}, Stop)
}

// Import replaces an editing file's graph, for example with one built from a
// tree by BuildGraph. The file must be saved to persist it.
func (i *Inspector) Import(id protocol.FileID, s *editor.State) error {
	item, ok := i.items[id]
	if !ok {
		return fmt.Errorf("import %s: %w", id, ErrUnknownFile)
	}
	if item.State != Editing {
		return fmt.Errorf("import %s from %s: %w", id, item.State, ErrInvalidTransition)
	}
	if _, ok := s.RootNode(); !ok {
		return fmt.Errorf("import %s: %w", id, editor.ErrDecode)
	}
	item.Entity = newEntity(s)
	item.Err = nil
	return nil
}

// Rename changes a file's display name. It takes effect on the next save.
func (i *Inspector) Rename(id protocol.FileID, name protocol.FileName) error {
	item, ok := i.items[id]
	if !ok {
		return fmt.Errorf("rename %s: %w", id, ErrUnknownFile)
	}
	if err := store.ValidateName(name); err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	item.Name = name
	return nil
}

// ToggleCollapsed flips the item's collapsed display flag.
func (i *Inspector) ToggleCollapsed(id protocol.FileID) error {
	item, ok := i.items[id]
	if !ok {
		return fmt.Errorf("toggle %s: %w", id, ErrUnknownFile)
	}
	item.Collapsed = !item.Collapsed
	return nil
}

// HandleResponses applies GUI events to a file's editor state. Every event is
// attempted; failures are logged and joined into the returned error.
func (i *Inspector) HandleResponses(id protocol.FileID, responses []Response) error {
	item, ok := i.items[id]
	if !ok {
		return fmt.Errorf("responses for %s: %w", id, ErrUnknownFile)
	}
	if item.Entity == nil {
		return fmt.Errorf("responses for %s: %w", id, ErrNoEntity)
	}
	var errs []error
	for _, r := range responses {
		if err := item.Entity.Apply(r); err != nil {
			i.logger.Warn("[Inspector] Failed to apply response", "file", id, "response", fmt.Sprintf("%T", r), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Update is one scheduling tick.
func (i *Inspector) Update() {
	if i.selected != nil {
		if item, ok := i.items[*i.selected]; ok {
			i.step(item)
		}
	}
	for _, item := range i.items {
		if item.Entity != nil {
			item.Entity.Editor.PinRoot()
			item.Entity.Graph.Root, _ = item.Entity.Editor.RootNode()
		}
	}
	for _, msg := range i.client.TryRecvAll() {
		i.handle(msg)
	}
}

func (i *Inspector) step(item *Item) {
	switch item.State {
	case New:
		i.logger.Info("[Inspector] Creating behavior", "file", item.ID)
		item.Entity = newEntity(editor.NewRootState())
		item.State = Editing

	case Load:
		i.logger.Info("[Inspector] Loading behavior", "file", item.ID)
		item.State = Loading
		i.client.Send(protocol.LoadFile{ID: item.ID})

	case Save:
		i.logger.Info("[Inspector] Saving behavior", "file", item.ID, "name", item.Name)
		if item.Entity == nil || item.Entity.Editor == nil {
			i.fail(item, New, ErrNoEntity)
			return
		}
		if err := store.ValidateName(item.Name); err != nil {
			i.fail(item, Editing, err)
			return
		}
		data, err := editor.Marshal(item.Entity.Editor)
		if err != nil {
			i.fail(item, Editing, fmt.Errorf("serialize %s: %w", item.Name, err))
			return
		}
		item.State = Saving
		i.client.Send(protocol.SaveFile{ID: item.ID, Name: item.Name, Data: data})

	case Run:
		i.logger.Info("[Inspector] Running behavior", "file", item.ID)
		if item.Entity == nil || item.Entity.Editor == nil {
			i.fail(item, New, ErrNoEntity)
			return
		}
		g := item.Entity.Editor.Graph
		child, ok := RootChild(g)
		if !ok {
			i.fail(item, Editing, ErrNoRootChild)
			return
		}
		tree, err := GraphToBehavior(g, child)
		if err != nil {
			i.fail(item, Editing, err)
			return
		}
		snapshot := tree.Clone()
		item.Behavior = &snapshot
		item.State = Starting
		i.client.Send(protocol.Run{ID: item.ID, Behavior: tree})

	case Stop:
		i.logger.Info("[Inspector] Stopping behavior", "file", item.ID)
		item.State = Stopping
		i.client.Send(protocol.Stop{ID: item.ID})
	}
}

func (i *Inspector) fail(item *Item, to State, err error) {
	i.logger.Error("[Inspector] Behavior action failed", "file", item.ID, "state", item.State, "next", to, "error", err)
	item.Err = err
	item.State = to
}

func (i *Inspector) handle(msg protocol.ServerMessage) {
	switch m := msg.(type) {
	case protocol.FileNames:
		for _, f := range m.Files {
			if _, ok := i.items[f.ID]; !ok {
				i.items[f.ID] = &Item{ID: f.ID, Name: f.Name, State: Load}
			}
		}

	case protocol.File:
		item, ok := i.lookup(m)
		if !ok {
			return
		}
		if item.State != Loading {
			i.logger.Warn("[Inspector] Ignoring file for item that is not loading", "file", m.ID, "state", item.State)
			return
		}
		s, err := editor.Unmarshal(m.Data)
		if err != nil {
			i.fail(item, New, fmt.Errorf("decode %s: %w", m.ID, err))
			return
		}
		item.Entity = newEntity(s)
		item.State = Editing

	case protocol.FileSaved:
		if item, ok := i.lookup(m); ok && item.State == Saving {
			item.State = Editing
		}

	case protocol.Started:
		if item, ok := i.lookup(m); ok && item.State == Starting {
			item.State = Running
		}

	case protocol.Stopped:
		item, ok := i.lookup(m)
		if !ok {
			return
		}
		if item.Behavior != nil && item.Entity != nil {
			g := item.Entity.Editor.Graph
			if child, ok := RootChild(g); ok {
				if err := BehaviorToGraph(g, child, *item.Behavior); err != nil {
					i.logger.Error("[Inspector] Failed to restore behavior", "file", m.ID, "error", err)
				}
			}
		}
		switch item.State {
		case Run, Starting, Running, Stop, Stopping:
			item.State = Editing
		}

	case protocol.Telemetry:
		item, ok := i.lookup(m)
		if !ok || item.State != Running || item.Entity == nil {
			return
		}
		g := item.Entity.Editor.Graph
		child, ok := RootChild(g)
		if !ok {
			i.logger.Error("[Inspector] Telemetry for graph without root child", "file", m.ID)
			return
		}
		if err := TelemetryToGraph(g, child, m.Telemetry); err != nil {
			i.logger.Error("[Inspector] Failed to apply telemetry", "file", m.ID, "error", err)
		}

	default:
		i.logger.Warn("[Inspector] Unhandled message", "kind", msg.Kind())
	}
}

// lookup finds the item a per-file message refers to, logging unknown ids.
func (i *Inspector) lookup(msg protocol.ServerMessage) (*Item, bool) {
	var id protocol.FileID
	switch m := msg.(type) {
	case protocol.File:
		id = m.ID
	case protocol.FileSaved:
		id = m.ID
	case protocol.Started:
		id = m.ID
	case protocol.Stopped:
		id = m.ID
	case protocol.Telemetry:
		id = m.ID
	}
	item, ok := i.items[id]
	if !ok {
		i.logger.Error("[Inspector] Unexpected message for unknown file", "kind", msg.Kind(), "file", id)
	}
	return item, ok
}
