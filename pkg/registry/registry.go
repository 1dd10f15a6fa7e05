// Package registry enumerates the finding sources (analyzers) and authorship
// sources (repo readers) known to blamethrower.
package registry

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Sumatoshi-tech/blamethrower/pkg/pipeline"
	"github.com/Sumatoshi-tech/blamethrower/pkg/record"
)

// Kind distinguishes the two source namespaces.
type Kind string

// Source kinds.
const (
	KindAnalyzer   Kind = "analyzer"
	KindRepoReader Kind = "repo"
)

// Registry errors.
var (
	ErrUnknownAnalyzer   = errors.New("unknown analyzer")
	ErrUnknownRepoReader = errors.New("unknown repo reader")
	ErrDuplicateName     = errors.New("duplicate source name")
	ErrNameCollision     = errors.New("name used by both an analyzer and a repo reader")
)

// AnalyzeFunc reads findings from a tool's output.
type AnalyzeFunc func(r io.Reader, opts map[string]string) iter.Seq2[record.Record, error]

// ReadFunc reads per-file authorship from blame output.
type ReadFunc func(r io.Reader, opts map[string]string) iter.Seq2[record.FileAuthors, error]

// Descriptor contains stable source metadata.
type Descriptor struct {
	Name    string                         `json:"name"`
	Help    string                         `json:"help"`
	Kind    Kind                           `json:"kind"`
	Options []pipeline.ConfigurationOption `json:"options"`
}

// Analyzer is a registered finding source.
type Analyzer struct {
	Descriptor

	Analyze AnalyzeFunc
}

// Open resolves opts against the declared options and starts reading r.
func (a Analyzer) Open(r io.Reader, opts map[string]string) (iter.Seq2[record.Record, error], error) {
	resolved, err := pipeline.Resolve(a.Options, opts)
	if err != nil {
		return nil, fmt.Errorf("analyzer %s: %w", a.Name, err)
	}

	return a.Analyze(r, resolved), nil
}

// RepoReader is a registered authorship source.
type RepoReader struct {
	Descriptor

	Read ReadFunc
}

// Open resolves opts against the declared options and starts reading r.
func (rr RepoReader) Open(r io.Reader, opts map[string]string) (iter.Seq2[record.FileAuthors, error], error) {
	resolved, err := pipeline.Resolve(rr.Options, opts)
	if err != nil {
		return nil, fmt.Errorf("repo reader %s: %w", rr.Name, err)
	}

	return rr.Read(r, resolved), nil
}

type source interface {
	descriptor() Descriptor
}

func (a Analyzer) descriptor() Descriptor    { return a.Descriptor }
func (rr RepoReader) descriptor() Descriptor { return rr.Descriptor }

// Registry stores sources with deterministic ordering.
type Registry struct {
	ordered     []Descriptor
	analyzers   map[string]Analyzer
	repoReaders map[string]RepoReader
}

// New builds a registry. Names must be unique within each kind and must not
// be shared between kinds.
func New(analyzers []Analyzer, repoReaders []RepoReader) (*Registry, error) {
	reg := &Registry{
		ordered:     make([]Descriptor, 0, len(analyzers)+len(repoReaders)),
		analyzers:   make(map[string]Analyzer, len(analyzers)),
		repoReaders: make(map[string]RepoReader, len(repoReaders)),
	}

	err := appendSources(KindAnalyzer, analyzers, reg.analyzers, &reg.ordered)
	if err != nil {
		return nil, err
	}

	err = appendSources(KindRepoReader, repoReaders, reg.repoReaders, &reg.ordered)
	if err != nil {
		return nil, err
	}

	for name := range reg.repoReaders {
		if _, clash := reg.analyzers[name]; clash {
			return nil, fmt.Errorf("%w: %s", ErrNameCollision, name)
		}
	}

	return reg, nil
}

func appendSources[T source](kind Kind, sources []T, index map[string]T, ordered *[]Descriptor) error {
	for _, src := range sources {
		descriptor := src.descriptor()
		descriptor.Kind = kind

		if _, exists := index[descriptor.Name]; exists {
			return fmt.Errorf("%w: %s %s", ErrDuplicateName, kind, descriptor.Name)
		}

		index[descriptor.Name] = src
		*ordered = append(*ordered, descriptor)
	}

	return nil
}

// All returns all descriptors, analyzers first, in registration order.
func (r *Registry) All() []Descriptor {
	descriptors := make([]Descriptor, len(r.ordered))
	copy(descriptors, r.ordered)

	return descriptors
}

// Names returns the names of the given kind in registration order.
func (r *Registry) Names(kind Kind) []string {
	names := make([]string, 0, len(r.ordered))

	for _, descriptor := range r.ordered {
		if descriptor.Kind == kind {
			names = append(names, descriptor.Name)
		}
	}

	return names
}

// Analyzer returns the analyzer registered under name.
func (r *Registry) Analyzer(name string) (Analyzer, error) {
	a, ok := r.analyzers[name]
	if !ok {
		return Analyzer{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownAnalyzer, name, r.Names(KindAnalyzer))
	}

	return a, nil
}

// RepoReader returns the repo reader registered under name.
func (r *Registry) RepoReader(name string) (RepoReader, error) {
	rr, ok := r.repoReaders[name]
	if !ok {
		return RepoReader{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownRepoReader, name, r.Names(KindRepoReader))
	}

	return rr, nil
}
