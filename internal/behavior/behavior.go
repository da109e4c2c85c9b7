// Package behavior defines the closed set of behavior payloads understood by the
// inspector, along with the two recursive models built from them: the Behavior
// Tree executed by the backend, and the Telemetry tree it reports back.
//
// The payload set is fixed at compile time. A Behavior is a tagged union: the
// Kind tag selects which (if any) of the parameter records is populated, and
// every kind-dependent decision is a single switch over Kind.
package behavior

import (
	"fmt"
	"time"
)

// Kind identifies a behavior variant.
type Kind string

const (
	KindDebug     Kind = "debug"
	KindWait      Kind = "wait"
	KindSelector  Kind = "selector"
	KindSequencer Kind = "sequencer"
	KindAll       Kind = "all"
	KindAny       Kind = "any"
	KindRepeater  Kind = "repeater"
	KindInverter  Kind = "inverter"
	KindSucceeder Kind = "succeeder"
	KindDelay     Kind = "delay"
	KindGuard     Kind = "guard"
	KindTimeout   Kind = "timeout"
)

// Kinds lists every known kind, in palette order.
func Kinds() []Kind {
	return []Kind{
		KindDebug,
		KindWait,
		KindSelector,
		KindSequencer,
		KindAll,
		KindAny,
		KindRepeater,
		KindInverter,
		KindSucceeder,
		KindDelay,
		KindGuard,
		KindTimeout,
	}
}

// Type is the structural category of a behavior, which determines how many
// children it may have.
type Type int

const (
	// Action behaviors are leaves.
	Action Type = iota
	// Composite behaviors have any number of children, one per output port.
	Composite
	// Decorator behaviors wrap exactly one child.
	Decorator
)

func (t Type) String() string {
	switch t {
	case Action:
		return "action"
	case Composite:
		return "composite"
	case Decorator:
		return "decorator"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Debug logs a message when ticked, then succeeds (or fails, if Fail is set).
type Debug struct {
	Message string `yaml:"message" validate:"max=1024"`
	Fail    bool   `yaml:"fail,omitempty"`
	// Fired counts how many times the node has been ticked to completion.
	Fired int `yaml:"fired,omitempty" validate:"gte=0"`
}

// Wait stays running until Duration has elapsed, then succeeds.
type Wait struct {
	Duration time.Duration `yaml:"duration" validate:"gte=0"`
	Elapsed  time.Duration `yaml:"elapsed,omitempty" validate:"gte=0"`
}

// Repeater re-runs its child until it has completed Times runs. Zero means
// repeat forever.
type Repeater struct {
	Times int `yaml:"times" validate:"gte=0"`
	Count int `yaml:"count,omitempty" validate:"gte=0"`
}

// Delay holds its child back until Duration has elapsed.
type Delay struct {
	Duration time.Duration `yaml:"duration" validate:"gte=0"`
	Elapsed  time.Duration `yaml:"elapsed,omitempty" validate:"gte=0"`
}

// Guard runs its child only while Condition evaluates to true. The condition is
// an expr-lang boolean expression evaluated against the running tree's
// blackboard.
type Guard struct {
	Condition string `yaml:"condition" validate:"required,max=1024"`
}

// Timeout fails its child if it is still running after Duration.
type Timeout struct {
	Duration time.Duration `yaml:"duration" validate:"gt=0"`
	Elapsed  time.Duration `yaml:"elapsed,omitempty" validate:"gte=0"`
}

// Behavior is a behavior payload. Exactly the parameter record matching Kind
// may be non-nil; kinds without parameters carry none.
type Behavior struct {
	Kind     Kind      `yaml:"kind" validate:"required"`
	Debug    *Debug    `yaml:"debug,omitempty"`
	Wait     *Wait     `yaml:"wait,omitempty"`
	Repeater *Repeater `yaml:"repeater,omitempty"`
	Delay    *Delay    `yaml:"delay,omitempty"`
	Guard    *Guard    `yaml:"guard,omitempty"`
	Timeout  *Timeout  `yaml:"timeout,omitempty"`
}

// New returns the default payload for kind. It panics if kind is unknown.
func New(kind Kind) Behavior {
	b := Behavior{Kind: kind}
	switch kind {
	case KindDebug:
		b.Debug = &Debug{Message: "debug"}
	case KindWait:
		b.Wait = &Wait{Duration: time.Second}
	case KindRepeater:
		b.Repeater = &Repeater{}
	case KindDelay:
		b.Delay = &Delay{Duration: time.Second}
	case KindGuard:
		b.Guard = &Guard{Condition: "true"}
	case KindTimeout:
		b.Timeout = &Timeout{Duration: 5 * time.Second}
	case KindSelector, KindSequencer, KindAll, KindAny, KindInverter, KindSucceeder:
	default:
		panic(fmt.Sprintf("behavior: unknown kind %q", kind))
	}
	return b
}

// Type returns the structural category of the behavior.
func (b Behavior) Type() Type {
	return b.Kind.Type()
}

// Type returns the structural category of the kind. Unknown kinds are
// reported as actions, which never grow children.
func (k Kind) Type() Type {
	switch k {
	case KindSelector, KindSequencer, KindAll, KindAny:
		return Composite
	case KindRepeater, KindInverter, KindSucceeder, KindDelay, KindGuard, KindTimeout:
		return Decorator
	default:
		return Action
	}
}

// Name is the human-readable name used as a node's default label.
func (k Kind) Name() string {
	switch k {
	case KindDebug:
		return "Debug"
	case KindWait:
		return "Wait"
	case KindSelector:
		return "Selector"
	case KindSequencer:
		return "Sequencer"
	case KindAll:
		return "All"
	case KindAny:
		return "Any"
	case KindRepeater:
		return "Repeater"
	case KindInverter:
		return "Inverter"
	case KindSucceeder:
		return "Succeeder"
	case KindDelay:
		return "Delay"
	case KindGuard:
		return "Guard"
	case KindTimeout:
		return "Timeout"
	default:
		return string(k)
	}
}

// Known reports whether k is one of Kinds.
func (k Kind) Known() bool {
	for _, v := range Kinds() {
		if v == k {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so that the copy's parameter records can be
// mutated independently.
func (b Behavior) Clone() Behavior {
	out := Behavior{Kind: b.Kind}
	if b.Debug != nil {
		v := *b.Debug
		out.Debug = &v
	}
	if b.Wait != nil {
		v := *b.Wait
		out.Wait = &v
	}
	if b.Repeater != nil {
		v := *b.Repeater
		out.Repeater = &v
	}
	if b.Delay != nil {
		v := *b.Delay
		out.Delay = &v
	}
	if b.Guard != nil {
		v := *b.Guard
		out.Guard = &v
	}
	if b.Timeout != nil {
		v := *b.Timeout
		out.Timeout = &v
	}
	return out
}

// Reset clears the runtime-only fields (counters and elapsed times), leaving
// the configured parameters intact.
func (b *Behavior) Reset() {
	if b.Debug != nil {
		b.Debug.Fired = 0
	}
	if b.Wait != nil {
		b.Wait.Elapsed = 0
	}
	if b.Repeater != nil {
		b.Repeater.Count = 0
	}
	if b.Delay != nil {
		b.Delay.Elapsed = 0
	}
	if b.Timeout != nil {
		b.Timeout.Elapsed = 0
	}
}

// String summarizes the payload for logs and the CLI.
func (b Behavior) String() string {
	switch b.Kind {
	case KindDebug:
		if b.Debug != nil {
			return fmt.Sprintf("debug(%q, fired=%d)", b.Debug.Message, b.Debug.Fired)
		}
	case KindWait:
		if b.Wait != nil {
			return fmt.Sprintf("wait(%s/%s)", b.Wait.Elapsed, b.Wait.Duration)
		}
	case KindRepeater:
		if b.Repeater != nil {
			if b.Repeater.Times == 0 {
				return fmt.Sprintf("repeater(%d/forever)", b.Repeater.Count)
			}
			return fmt.Sprintf("repeater(%d/%d)", b.Repeater.Count, b.Repeater.Times)
		}
	case KindDelay:
		if b.Delay != nil {
			return fmt.Sprintf("delay(%s/%s)", b.Delay.Elapsed, b.Delay.Duration)
		}
	case KindGuard:
		if b.Guard != nil {
			return fmt.Sprintf("guard(%s)", b.Guard.Condition)
		}
	case KindTimeout:
		if b.Timeout != nil {
			return fmt.Sprintf("timeout(%s/%s)", b.Timeout.Elapsed, b.Timeout.Duration)
		}
	}
	return string(b.Kind)
}
