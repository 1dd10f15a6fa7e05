// Package pipeline defines the option schema that finding and authorship
// sources declare, and resolves user-supplied key=value options against it.
package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Option resolution errors.
var (
	ErrUnknownOption   = errors.New("unknown option")
	ErrInvalidOption   = errors.New("invalid option value")
	ErrMalformedOption = errors.New("malformed option, want key=value")
)

// ConfigurationOptionType represents the possible types of a ConfigurationOption's value.
type ConfigurationOptionType int

const (
	// StringConfigurationOption reflects the string value type.
	StringConfigurationOption ConfigurationOptionType = iota
	// BoolConfigurationOption reflects the boolean value type.
	BoolConfigurationOption
	// IntConfigurationOption reflects the integer value type.
	IntConfigurationOption
	// PathConfigurationOption reflects a path prefix or file system path.
	PathConfigurationOption
)

// String returns the name shown next to the option in listings.
func (opt ConfigurationOptionType) String() string {
	switch opt {
	case StringConfigurationOption:
		return "string"
	case BoolConfigurationOption:
		return "bool"
	case IntConfigurationOption:
		return "int"
	case PathConfigurationOption:
		return "path"
	}

	return fmt.Sprintf("ConfigurationOptionType(%d)", int(opt))
}

// MarshalText encodes the type by name.
func (opt ConfigurationOptionType) MarshalText() ([]byte, error) {
	return []byte(opt.String()), nil
}

// UnmarshalText decodes a type name written by MarshalText.
func (opt *ConfigurationOptionType) UnmarshalText(text []byte) error {
	for _, candidate := range []ConfigurationOptionType{
		StringConfigurationOption, BoolConfigurationOption, IntConfigurationOption, PathConfigurationOption,
	} {
		if candidate.String() == string(text) {
			*opt = candidate

			return nil
		}
	}

	return fmt.Errorf("%w: unknown option type %q", ErrInvalidOption, text)
}

// ConfigurationOption describes one option a source accepts.
type ConfigurationOption struct {
	// Default is the value used when the option is not given.
	Default string `json:"default"`
	// Name is the key used in "-o name=value".
	Name string `json:"name"`
	// Description represents the help text about the configuration option.
	Description string `json:"description"`
	// Type specifies the kind of the option's value.
	Type ConfigurationOptionType `json:"type"`
}

// FormatDefault renders the default value for listings.
func (opt ConfigurationOption) FormatDefault() string {
	if opt.Type == StringConfigurationOption || opt.Type == PathConfigurationOption {
		return strconv.Quote(opt.Default)
	}

	return opt.Default
}

func (opt ConfigurationOption) check(value string) error {
	var err error

	switch opt.Type {
	case BoolConfigurationOption:
		_, err = strconv.ParseBool(value)
	case IntConfigurationOption:
		_, err = strconv.Atoi(value)
	case StringConfigurationOption, PathConfigurationOption:
	}

	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a %s", ErrInvalidOption, opt.Name, value, opt.Type)
	}

	return nil
}

// Resolve checks given against the declared options and fills in defaults.
// The result always has an entry for every declared option.
func Resolve(declared []ConfigurationOption, given map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(declared))
	known := make(map[string]ConfigurationOption, len(declared))

	for _, opt := range declared {
		known[opt.Name] = opt
		resolved[opt.Name] = opt.Default
	}

	for _, name := range slices.Sorted(maps.Keys(given)) {
		opt, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, name)
		}

		err := opt.check(given[name])
		if err != nil {
			return nil, err
		}

		resolved[name] = given[name]
	}

	return resolved, nil
}

// ParseAssignments turns "key=value" strings into a map. Later assignments of
// the same key win.
func ParseAssignments(assignments []string) (map[string]string, error) {
	opts := make(map[string]string, len(assignments))

	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedOption, assignment)
		}

		opts[key] = value
	}

	return opts, nil
}
