package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	bt "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/bt-inspector/internal/behavior"
)

// Blackboard keys maintained by the runner for every tree.
const (
	KeyTick    = "tick"
	KeyElapsed = "elapsed"
)

// execTree is one running behavior tree: the go-behaviortree node graph plus
// the per-node records that telemetry is read from.
type execTree struct {
	root    *execNode
	node    bt.Node
	env     map[string]any
	logger  *slog.Logger
	onGuard func(error)

	// dt is the time since the previous tick, read by timed behaviors.
	dt      time.Duration
	ticks   int
	elapsed time.Duration
	done    bool
	final   behavior.Status
}

// execNode records what a single tree node last did.
type execNode struct {
	tree     *execTree
	label    string
	behavior behavior.Behavior
	status   behavior.Status
	ticked   bool
	children []*execNode
	guard    *vm.Program
	guardErr error
	// memo is the memorized composite tick for the current execution.
	memo bt.Tick
}

// newExecTree builds the executable form of t. vars seeds the blackboard,
// and onGuard is invoked for every guard compile or evaluation failure.
func newExecTree(t behavior.Tree, vars map[string]any, logger *slog.Logger, onGuard func(error)) (*execTree, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	env := make(map[string]any, len(vars)+2)
	for k, v := range vars {
		env[k] = v
	}
	env[KeyTick] = 0
	env[KeyElapsed] = 0.0

	tree := &execTree{env: env, logger: logger, onGuard: onGuard}
	root, node, err := tree.build(t)
	if err != nil {
		return nil, err
	}
	tree.root = root
	tree.node = node
	return tree, nil
}

func (e *execTree) build(t behavior.Tree) (*execNode, bt.Node, error) {
	switch t.Behavior.Type() {
	case behavior.Action:
		if len(t.Children) > 0 {
			return nil, nil, fmt.Errorf("%w: action %q has children", behavior.ErrInvalid, t.Label)
		}
	case behavior.Decorator:
		if len(t.Children) > 1 {
			return nil, nil, fmt.Errorf("%w: decorator %q has %d children", behavior.ErrInvalid, t.Label, len(t.Children))
		}
	}

	n := &execNode{tree: e, label: t.Label, behavior: t.Behavior.Clone()}
	children := make([]bt.Node, 0, len(t.Children))
	for _, c := range t.Children {
		cn, node, err := e.build(c)
		if err != nil {
			return nil, nil, err
		}
		n.children = append(n.children, cn)
		children = append(children, node)
	}

	if g := n.behavior.Guard; g != nil {
		n.guard, n.guardErr = expr.Compile(g.Condition, expr.Env(e.env), expr.AsBool())
		if n.guardErr != nil {
			e.guardFailed(n, n.guardErr)
		}
	}

	return n, bt.New(n.tick(n.kindTick()), children...), nil
}

// tickOnce advances the tree by dt. It reports false once the tree has
// completed, after which it is no longer ticked.
func (e *execTree) tickOnce(dt time.Duration) bool {
	if e.done {
		return false
	}
	e.dt = dt
	e.elapsed += dt
	e.ticks++
	e.env[KeyTick] = e.ticks
	e.env[KeyElapsed] = e.elapsed.Seconds()

	status, err := e.node.Tick()
	if err != nil {
		e.logger.Warn("[Runner] Tree tick failed", "error", err)
		status = bt.Failure
	}
	switch status {
	case bt.Success:
		e.done, e.final = true, behavior.Success
	case bt.Failure:
		e.done, e.final = true, behavior.Failure
	}
	return true
}

// telemetry snapshots the per-node records. Nodes that have never been
// ticked report no payload.
func (e *execTree) telemetry() behavior.Telemetry {
	return e.root.telemetry()
}

func (e *execTree) guardFailed(n *execNode, err error) {
	e.logger.Warn("[Runner] Guard condition failed",
		"node", n.label,
		"condition", n.behavior.Guard.Condition,
		"error", err)
	if e.onGuard != nil {
		e.onGuard(err)
	}
}

func (n *execNode) telemetry() behavior.Telemetry {
	t := behavior.Telemetry{State: n.status}
	if n.ticked {
		b := n.behavior.Clone()
		t.Behavior = &b
	}
	if len(n.children) > 0 {
		t.Children = make([]behavior.Telemetry, len(n.children))
		for i, c := range n.children {
			t.Children[i] = c.telemetry()
		}
	}
	return t
}

// tick wraps a kind tick, mapping errors to failure and recording the result.
func (n *execNode) tick(inner bt.Tick) bt.Tick {
	return func(children []bt.Node) (bt.Status, error) {
		status, err := inner(children)
		if err != nil {
			n.tree.logger.Warn("[Runner] Node tick failed", "node", n.label, "error", err)
			status = bt.Failure
		}
		n.ticked = true
		n.status = fromStatus(status)
		if status != bt.Running {
			for _, c := range n.children {
				c.abort()
			}
		}
		return status, nil
	}
}

// abort returns every running node in the subtree to idle, so that the next
// tick starts each of them afresh.
func (n *execNode) abort() {
	if n.status != behavior.Running {
		return
	}
	n.status = behavior.Idle
	n.memo = nil
	for _, c := range n.children {
		c.abort()
	}
}

// fresh reports whether this tick starts a new execution of the node.
func (n *execNode) fresh() bool {
	return n.status != behavior.Running
}

func (n *execNode) kindTick() bt.Tick {
	switch n.behavior.Kind {
	case behavior.KindDebug:
		return n.tickDebug
	case behavior.KindWait:
		return n.tickWait
	case behavior.KindSelector:
		return n.memorize(bt.Selector)
	case behavior.KindSequencer:
		return n.memorize(bt.Sequence)
	case behavior.KindAll:
		return n.memorize(all)
	case behavior.KindAny:
		return n.memorize(anyOf)
	case behavior.KindRepeater:
		return n.tickRepeater
	case behavior.KindInverter:
		return bt.Not(first)
	case behavior.KindSucceeder:
		return succeed
	case behavior.KindDelay:
		return n.tickDelay
	case behavior.KindGuard:
		return n.tickGuard
	case behavior.KindTimeout:
		return n.tickTimeout
	default:
		kind := n.behavior.Kind
		return func([]bt.Node) (bt.Status, error) {
			return bt.Failure, fmt.Errorf("unknown behavior kind %q", kind)
		}
	}
}

// memorize wraps tick with bt.Memorize, starting a new memo for every fresh
// execution so an aborted composite does not resume where it left off.
func (n *execNode) memorize(tick bt.Tick) bt.Tick {
	return func(children []bt.Node) (bt.Status, error) {
		if n.memo == nil || n.fresh() {
			n.memo = bt.Memorize(tick)
		}
		return n.memo(children)
	}
}

func (n *execNode) tickDebug([]bt.Node) (bt.Status, error) {
	d := n.behavior.Debug
	d.Fired++
	n.tree.logger.Info("[Runner] Debug", "node", n.label, "message", d.Message, "fired", d.Fired)
	if d.Fail {
		return bt.Failure, nil
	}
	return bt.Success, nil
}

func (n *execNode) tickWait([]bt.Node) (bt.Status, error) {
	w := n.behavior.Wait
	if n.fresh() {
		w.Elapsed = 0
	}
	w.Elapsed += n.tree.dt
	if w.Elapsed >= w.Duration {
		w.Elapsed = w.Duration
		return bt.Success, nil
	}
	return bt.Running, nil
}

func (n *execNode) tickRepeater(children []bt.Node) (bt.Status, error) {
	r := n.behavior.Repeater
	if n.fresh() {
		r.Count = 0
	}
	status, err := first(children)
	if err != nil {
		return bt.Failure, err
	}
	if status == bt.Running {
		return bt.Running, nil
	}
	r.Count++
	if r.Times > 0 && r.Count >= r.Times {
		return bt.Success, nil
	}
	return bt.Running, nil
}

func (n *execNode) tickDelay(children []bt.Node) (bt.Status, error) {
	d := n.behavior.Delay
	if n.fresh() {
		d.Elapsed = 0
	}
	if d.Elapsed < d.Duration {
		d.Elapsed += n.tree.dt
		if d.Elapsed < d.Duration {
			return bt.Running, nil
		}
		d.Elapsed = d.Duration
	}
	return first(children)
}

func (n *execNode) tickTimeout(children []bt.Node) (bt.Status, error) {
	t := n.behavior.Timeout
	if n.fresh() {
		t.Elapsed = 0
	}
	t.Elapsed += n.tree.dt
	if t.Elapsed >= t.Duration {
		t.Elapsed = t.Duration
		return bt.Failure, nil
	}
	return first(children)
}

func (n *execNode) tickGuard(children []bt.Node) (bt.Status, error) {
	if n.guardErr != nil {
		return bt.Failure, nil
	}
	ok, err := n.evalGuard()
	if err != nil {
		n.tree.guardFailed(n, err)
		return bt.Failure, nil
	}
	if !ok {
		return bt.Failure, nil
	}
	return first(children)
}

func (n *execNode) evalGuard() (bool, error) {
	result, err := expr.Run(n.guard, n.tree.env)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("non-boolean result %T", result)
	}
	return b, nil
}

// first ticks the only child of a decorator. A decorator with no child
// behaves as though its child succeeded.
func first(children []bt.Node) (bt.Status, error) {
	if len(children) == 0 {
		return bt.Success, nil
	}
	return children[0].Tick()
}

func succeed(children []bt.Node) (bt.Status, error) {
	status, err := first(children)
	if err != nil {
		return bt.Failure, err
	}
	if status == bt.Running {
		return bt.Running, nil
	}
	return bt.Success, nil
}

// all ticks every child, failing if any child fails and succeeding once
// every child has.
func all(children []bt.Node) (bt.Status, error) {
	var running, failed bool
	var errs []error
	for _, c := range children {
		status, err := c.Tick()
		if err != nil {
			errs = append(errs, err)
			failed = true
			continue
		}
		switch status {
		case bt.Running:
			running = true
		case bt.Failure:
			failed = true
		}
	}
	switch {
	case failed:
		return bt.Failure, errors.Join(errs...)
	case running:
		return bt.Running, nil
	default:
		return bt.Success, nil
	}
}

// anyOf ticks every child, succeeding if any child succeeds and failing once
// every child has failed.
func anyOf(children []bt.Node) (bt.Status, error) {
	var running, succeeded bool
	var errs []error
	for _, c := range children {
		status, err := c.Tick()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch status {
		case bt.Running:
			running = true
		case bt.Success:
			succeeded = true
		}
	}
	switch {
	case succeeded:
		return bt.Success, nil
	case running:
		return bt.Running, nil
	default:
		return bt.Failure, errors.Join(errs...)
	}
}

func fromStatus(s bt.Status) behavior.Status {
	switch s {
	case bt.Running:
		return behavior.Running
	case bt.Success:
		return behavior.Success
	case bt.Failure:
		return behavior.Failure
	default:
		return behavior.Idle
	}
}
