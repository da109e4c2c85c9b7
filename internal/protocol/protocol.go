// Package protocol defines the messages exchanged between an inspector session
// (the client) and a persistence/execution backend (the server), and the pair
// of unbounded queues that carries them.
//
// Delivery is asynchronous. The layer does not guarantee ordering across
// message kinds nor at most one request in flight; the inspector's session
// states decide which messages are meaningful on arrival.
package protocol

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/joeycumines/bt-inspector/internal/behavior"
)

// FileID is the unique key of a behavior file.
type FileID string

// NewFileID allocates a random file id.
func NewFileID() FileID {
	return FileID(uuid.NewString())
}

// FileName is the user-visible, editable name of a behavior file.
type FileName string

// DefaultFileName is the name given to a new file.
func DefaultFileName(id FileID) FileName {
	s := string(id)
	if len(s) > 8 {
		s = s[:8]
	}
	return FileName(fmt.Sprintf("bt_%s", s))
}

// FileData is a serialized editor state.
type FileData []byte

// FileEntry pairs a file id with its name, as announced by FileNames.
type FileEntry struct {
	ID   FileID   `yaml:"id"`
	Name FileName `yaml:"name"`
}

// ClientMessage is a request from the inspector to the backend.
type ClientMessage interface {
	clientMessage()
	// Kind names the message for logs and metrics.
	Kind() string
}

// ServerMessage is a notification from the backend to the inspector.
type ServerMessage interface {
	serverMessage()
	Kind() string
}

// LoadFile asks for the data of a file.
type LoadFile struct {
	ID FileID
}

// SaveFile persists a file.
type SaveFile struct {
	ID   FileID
	Name FileName
	Data FileData
}

// Run starts executing a behavior tree under the file's id.
type Run struct {
	ID       FileID
	Behavior behavior.Tree
}

// Stop halts the tree running under the file's id.
type Stop struct {
	ID FileID
}

// ListFiles asks the backend to announce FileNames again.
type ListFiles struct{}

func (LoadFile) clientMessage()  {}
func (SaveFile) clientMessage()  {}
func (Run) clientMessage()       {}
func (Stop) clientMessage()      {}
func (ListFiles) clientMessage() {}

func (LoadFile) Kind() string  { return "load_file" }
func (SaveFile) Kind() string  { return "save_file" }
func (Run) Kind() string       { return "run" }
func (Stop) Kind() string      { return "stop" }
func (ListFiles) Kind() string { return "list_files" }

// FileNames announces the files known to the backend.
type FileNames struct {
	Files []FileEntry
}

// File carries the data requested by LoadFile.
type File struct {
	ID   FileID
	Data FileData
}

// FileSaved acknowledges SaveFile.
type FileSaved struct {
	ID FileID
}

// Started acknowledges Run.
type Started struct {
	ID FileID
}

// Stopped acknowledges Stop.
type Stopped struct {
	ID FileID
}

// Telemetry reports the state of a running tree.
type Telemetry struct {
	ID        FileID
	Telemetry behavior.Telemetry
}

func (FileNames) serverMessage() {}
func (File) serverMessage()      {}
func (FileSaved) serverMessage() {}
func (Started) serverMessage()   {}
func (Stopped) serverMessage()   {}
func (Telemetry) serverMessage() {}

func (FileNames) Kind() string { return "file_names" }
func (File) Kind() string      { return "file" }
func (FileSaved) Kind() string { return "file_saved" }
func (Started) Kind() string   { return "started" }
func (Stopped) Kind() string   { return "stopped" }
func (Telemetry) Kind() string { return "telemetry" }

// Client is the inspector's end of a pipe.
type Client struct {
	send *Queue[ClientMessage]
	recv *Queue[ServerMessage]
}

// Send enqueues a request. It never blocks.
func (c *Client) Send(m ClientMessage) { c.send.Push(m) }

// TryRecvAll drains every pending notification.
func (c *Client) TryRecvAll() []ServerMessage { return c.recv.TryRecvAll() }

// Ready fires when notifications may be pending.
func (c *Client) Ready() <-chan struct{} { return c.recv.Ready() }

// Server is the backend's end of a pipe.
type Server struct {
	send *Queue[ServerMessage]
	recv *Queue[ClientMessage]
}

// Send enqueues a notification. It never blocks.
func (s *Server) Send(m ServerMessage) { s.send.Push(m) }

// TryRecvAll drains every pending request.
func (s *Server) TryRecvAll() []ClientMessage { return s.recv.TryRecvAll() }

// Ready fires when requests may be pending.
func (s *Server) Ready() <-chan struct{} { return s.recv.Ready() }

// NewPipe returns the two ends of a pair of unidirectional queues.
func NewPipe() (*Client, *Server) {
	toServer := NewQueue[ClientMessage]()
	toClient := NewQueue[ServerMessage]()
	return &Client{send: toServer, recv: toClient}, &Server{send: toClient, recv: toServer}
}
