package registry

import (
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers/bandit"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers/findbugs"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers/jslint"
	"github.com/Sumatoshi-tech/blamethrower/pkg/analyzers/pylint"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders/git"
	"github.com/Sumatoshi-tech/blamethrower/pkg/reporeaders/hg"
)

// DefaultAnalyzers returns the built-in finding sources.
func DefaultAnalyzers() []Analyzer {
	return []Analyzer{
		{Descriptor: Descriptor{Name: findbugs.Name, Help: findbugs.Help, Options: findbugs.Options}, Analyze: findbugs.Analyze},
		{Descriptor: Descriptor{Name: jslint.Name, Help: jslint.Help, Options: jslint.Options}, Analyze: jslint.Analyze},
		{Descriptor: Descriptor{Name: pylint.Name, Help: pylint.Help, Options: pylint.Options}, Analyze: pylint.Analyze},
		{Descriptor: Descriptor{Name: bandit.Name, Help: bandit.Help, Options: bandit.Options}, Analyze: bandit.Analyze},
	}
}

// DefaultRepoReaders returns the built-in authorship sources.
func DefaultRepoReaders() []RepoReader {
	return []RepoReader{
		{Descriptor: Descriptor{Name: git.Name, Help: git.Help, Options: git.Options}, Read: git.Read},
		{Descriptor: Descriptor{Name: hg.Name, Help: hg.Help, Options: hg.Options}, Read: hg.Read},
	}
}

// Default builds the registry of built-in sources. Hosts call it once at
// startup.
func Default() (*Registry, error) {
	return New(DefaultAnalyzers(), DefaultRepoReaders())
}
