// Package render prints editor graphs and telemetry as text outlines for the
// CLI.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/joeycumines/bt-inspector/internal/behavior"
	"github.com/joeycumines/bt-inspector/internal/editor"
	"github.com/joeycumines/bt-inspector/internal/graph"
	"github.com/joeycumines/bt-inspector/internal/inspector"
)

// Color modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Options controls rendering.
type Options struct {
	// Color enables ANSI styling.
	Color bool
	// Detached also lists nodes not reachable from the Root anchor.
	Detached bool
}

// ColorEnabled resolves a color mode for w. Auto enables color only when w is
// a terminal.
func ColorEnabled(w io.Writer, mode string) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type styles struct {
	label   lipgloss.Style
	kind    lipgloss.Style
	branch  lipgloss.Style
	status  map[behavior.Status]lipgloss.Style
	enabled bool
}

func newStyles(enabled bool) styles {
	return styles{
		label:  lipgloss.NewStyle().Bold(true),
		kind:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		branch: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		status: map[behavior.Status]lipgloss.Style{
			behavior.Idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			behavior.Running: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			behavior.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			behavior.Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
		enabled: enabled,
	}
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

// line is one rendered outline entry.
type line struct {
	label    string
	behavior behavior.Behavior
	state    *behavior.Status
	note     string
}

func (s styles) line(l line) string {
	var b strings.Builder
	b.WriteString(s.render(s.label, l.label))
	b.WriteString(" ")
	b.WriteString(s.render(s.kind, fmt.Sprintf("[%s %s]", l.behavior.Type(), l.behavior)))
	if l.state != nil {
		b.WriteString(" ")
		b.WriteString(s.render(s.status[*l.state], l.state.String()))
	}
	if l.note != "" {
		b.WriteString(" ")
		b.WriteString(s.render(s.kind, l.note))
	}
	return b.String()
}

// Graph prints the tree hanging off the Root anchor, with each node's
// displayed execution state.
func Graph(w io.Writer, st *editor.State, opts Options) error {
	s := newStyles(opts.Color)
	g := st.Graph
	p := &printer{w: w, s: s, g: g, seen: make(map[graph.NodeID]bool)}

	root, ok := st.RootNode()
	if !ok {
		return fmt.Errorf("render: graph has no root node")
	}
	p.printf("%s\n", s.render(s.label, "Root"))
	if child, ok := inspector.RootChild(g); ok {
		if err := p.node(child, "", true); err != nil {
			return err
		}
	} else {
		p.printf("%s\n", s.render(s.kind, "(no behavior connected)"))
	}

	if opts.Detached {
		var detached []graph.NodeID
		for _, id := range g.NodeIDs() {
			if id != root && !p.seen[id] {
				detached = append(detached, id)
			}
		}
		if len(detached) > 0 {
			p.printf("%s\n", s.render(s.kind, "detached:"))
			for i, id := range detached {
				if p.seen[id] {
					continue
				}
				if err := p.node(id, "", i == len(detached)-1); err != nil {
					return err
				}
			}
		}
	}
	return p.err
}

type printer struct {
	w    io.Writer
	s    styles
	g    *editor.Graph
	seen map[graph.NodeID]bool
	err  error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) branch(prefix string, last bool) (head, next string) {
	if last {
		return prefix + p.s.render(p.s.branch, "└── "), prefix + "    "
	}
	return prefix + p.s.render(p.s.branch, "├── "), prefix + p.s.render(p.s.branch, "│   ")
}

func (p *printer) node(id graph.NodeID, prefix string, last bool) error {
	n, err := p.g.Node(id)
	if err != nil {
		return err
	}
	head, next := p.branch(prefix, last)
	l := line{label: n.Label, behavior: n.UserData.Template.Behavior, state: n.UserData.State}
	if p.seen[id] {
		l.note = "(cycle)"
		p.printf("%s%s\n", head, p.s.line(l))
		return nil
	}
	p.seen[id] = true
	p.printf("%s%s\n", head, p.s.line(l))

	kids, err := inspector.Children(p.g, id)
	if err != nil {
		return err
	}
	for i, k := range kids {
		if err := p.node(k, next, i == len(kids)-1); err != nil {
			return err
		}
	}
	return nil
}

// Telemetry prints a behavior tree with the states reported for it. Nodes
// without a snapshot show their configured payload.
func Telemetry(w io.Writer, tree behavior.Tree, t behavior.Telemetry, opts Options) error {
	p := &printer{w: w, s: newStyles(opts.Color)}
	p.telemetry(tree, &t, "", true, true)
	return p.err
}

func (p *printer) telemetry(tree behavior.Tree, t *behavior.Telemetry, prefix string, last, top bool) {
	l := line{label: tree.Label, behavior: tree.Behavior}
	if t != nil {
		if t.Behavior != nil {
			l.behavior = *t.Behavior
		}
		state := t.State
		l.state = &state
	}
	head, next := "", ""
	if !top {
		head, next = p.branch(prefix, last)
	}
	p.printf("%s%s\n", head, p.s.line(l))
	for i, c := range tree.Children {
		var ct *behavior.Telemetry
		if t != nil && i < len(t.Children) {
			ct = &t.Children[i]
		}
		p.telemetry(c, ct, next, i == len(tree.Children)-1, false)
	}
}
