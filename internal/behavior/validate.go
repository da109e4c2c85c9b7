package behavior

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid behavior")

// Validate checks the struct-level constraints on the payload and that the
// populated parameter record matches its kind.
func (b Behavior) Validate() error {
	if !b.Kind.Known() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalid, b.Kind)
	}
	if err := validate.Struct(b); err != nil {
		return formatValidationError(err)
	}

	present := map[Kind]bool{
		KindDebug:    b.Debug != nil,
		KindWait:     b.Wait != nil,
		KindRepeater: b.Repeater != nil,
		KindDelay:    b.Delay != nil,
		KindGuard:    b.Guard != nil,
		KindTimeout:  b.Timeout != nil,
	}
	for kind, ok := range present {
		if ok && kind != b.Kind {
			return fmt.Errorf("%w: %s payload carries %s parameters", ErrInvalid, b.Kind, kind)
		}
	}
	if _, hasParams := present[b.Kind]; hasParams && !present[b.Kind] {
		return fmt.Errorf("%w: %s payload is missing its parameters", ErrInvalid, b.Kind)
	}
	return nil
}

// Validate checks every payload in the tree.
func (t Tree) Validate() error {
	var err error
	t.Walk(func(path []int, node Tree) bool {
		if e := node.Behavior.Validate(); e != nil {
			err = fmt.Errorf("node %v (%s): %w", path, node.Label, e)
			return false
		}
		return true
	})
	return err
}

// formatValidationError converts validator errors to user-friendly messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := strings.TrimPrefix(e.Namespace(), "Behavior.")
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "gte", "gt", "max":
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, e.Tag(), e.Param(), e.Value()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", field, e.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(messages, "; "))
}
