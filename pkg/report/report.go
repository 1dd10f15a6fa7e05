// Package report renders statistics for people and for machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

// Format names an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPlot Format = "plot"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatPlot}

// ErrUnknownFormat is returned for format names not in Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownFormat, name, Formats)
	}

	return f, nil
}

// Options tunes rendering.
type Options struct {
	// NoColor disables ANSI colors in text output.
	NoColor bool
	// MaxAuthors caps the authors shown in text and plot output; 0 means all.
	MaxAuthors int
}

// Render writes result to w in the given format.
func Render(w io.Writer, format Format, result stats.Result, opts Options) error {
	switch format {
	case FormatText:
		return WriteText(w, result, opts)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatYAML:
		return WriteYAML(w, result)
	case FormatPlot:
		return WritePlot(w, result, opts)
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result stats.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(result)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// WriteYAML writes result as YAML.
func WriteYAML(w io.Writer, result stats.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(result)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}

func topAuthors(result stats.Result, limit int) []stats.AuthorBucket {
	ranked := result.Ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}
