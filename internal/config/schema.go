package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
)

// Option declares a configuration option.
type Option struct {
	// Key is the option name as written in the file.
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for global options, or the command it belongs to.
	Section string
	// EnvVar, if set, overrides the file value.
	EnvVar string
}

// Schema is the set of known options, used for validation, help output and
// resolving effective values.
type Schema struct {
	options   []*Option
	byKey     map[string]*Option
	bySection map[string]map[string]*Option
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		byKey:     make(map[string]*Option),
		bySection: make(map[string]map[string]*Option),
	}
}

// Register adds opt. A later registration of the same key and section wins.
func (s *Schema) Register(opts ...Option) {
	for _, opt := range opts {
		ref := &opt
		s.options = append(s.options, ref)
		if opt.Section == "" {
			s.byKey[opt.Key] = ref
			continue
		}
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*Option)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *Schema) Lookup(section, key string) *Option {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// IsKnown reports whether key may appear in section. Global keys may appear
// in any section.
func (s *Schema) IsKnown(section, key string) bool {
	return s.Lookup(section, key) != nil || s.byKey[key] != nil
}

// SectionOptions returns the options registered for section, in registration
// order.
func (s *Schema) SectionOptions(section string) []Option {
	var out []Option
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of every non-global section.
func (s *Schema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of a global key: the environment
// override, then the file value, then the default.
func (s *Schema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetGlobalOption(key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveInt is Resolve parsed as an integer.
func (s *Schema) ResolveInt(c *Config, key string) (int, error) {
	v := s.Resolve(c, key)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: expected int, got %q", key, v)
	}
	return i, nil
}

// ResolveDuration is Resolve parsed as a duration.
func (s *Schema) ResolveDuration(c *Config, key string) (time.Duration, error) {
	v := s.Resolve(c, key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: expected duration, got %q", key, v)
	}
	return d, nil
}

// ValidateConfig returns the sorted list of unknown options and type
// mismatches in c.
func ValidateConfig(c *Config, s *Schema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp describes every option, global options first.
func (s *Schema) FormatHelp() string {
	var b strings.Builder
	if globals := s.SectionOptions(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.SectionOptions(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o Option) {
	fmt.Fprintf(b, "  %-28s %s", o.Key, o.Description)
	var parts []string
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema declares every option bti understands.
func DefaultSchema() *Schema {
	s := NewSchema()
	s.Register([]Option{
		{Key: "color", Type: TypeString, Default: "auto", Description: "Color mode: auto, always, never"},

		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "BTI_LOG_LEVEL"},
		{Key: "log.file", Type: TypeString, Description: "Log file path; logs go to stderr when unset", EnvVar: "BTI_LOG_FILE"},
		{Key: "log.format", Type: TypeString, Default: "text", Description: "Log format: text, json"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},

		{Key: "store.dir", Type: TypeString, Description: "Behavior file directory (default ~/.bt-inspector/files)", EnvVar: "BTI_STORE_DIR"},

		{Key: "runner.tick-interval", Type: TypeDuration, Default: "100ms", Description: "Interval between behavior tree ticks"},
		{Key: "inspector.tick-interval", Type: TypeDuration, Default: "50ms", Description: "Interval between inspector updates"},

		{Key: "metrics.addr", Type: TypeString, Description: "Listen address for the prometheus /metrics endpoint"},

		{Key: "timeout", Section: "run", Type: TypeDuration, Description: "Stop the run after this long; 0 runs until the tree completes"},
		{Key: "detached", Section: "show", Type: TypeBool, Default: "false", Description: "Also list nodes not connected to the root"},
	}...)
	return s
}
