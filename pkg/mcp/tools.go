package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/blamethrower/internal/runner"
	"github.com/Sumatoshi-tech/blamethrower/pkg/input"
	"github.com/Sumatoshi-tech/blamethrower/pkg/merge"
	"github.com/Sumatoshi-tech/blamethrower/pkg/registry"
	"github.com/Sumatoshi-tech/blamethrower/pkg/stats"
)

// Tool name constants.
const (
	ToolNameStats = "blamethrower_stats"
	ToolNameList  = "blamethrower_list"
)

// Sentinel errors for tool input validation.
var (
	// ErrPathNotAbsolute indicates an input path is relative.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrStdinPath indicates "-" was given; stdin carries the MCP transport.
	ErrStdinPath = errors.New("stdin is not available to MCP tools")
)

// StatsInput is the input schema for the blamethrower_stats tool.
type StatsInput struct {
	Analyzer        string            `json:"analyzer,omitempty"         jsonschema:"analyzer name (e.g. pylint jslint findbugs bandit)"`
	AnalyzerOptions map[string]string `json:"analyzer_options,omitempty" jsonschema:"analyzer options as key/value pairs"`
	Bugs            string            `json:"bugs,omitempty"             jsonschema:"absolute path to the analyzer output"`
	Repo            string            `json:"repo,omitempty"             jsonschema:"repo reader name (git or hg)"`
	RepoOptions     map[string]string `json:"repo_options,omitempty"     jsonschema:"repo reader options as key/value pairs"`
	Blame           string            `json:"blame,omitempty"            jsonschema:"absolute path to the blame output"`
	RepoPath        string            `json:"repo_path,omitempty"        jsonschema:"absolute path to a git repository to blame at HEAD"`
	Records         string            `json:"records,omitempty"          jsonschema:"absolute path to merged TSV records to aggregate"`
	NoValidate      bool              `json:"no_validate,omitempty"      jsonschema:"skip record validation"`
	SkipVendored    bool              `json:"skip_vendored,omitempty"    jsonschema:"drop vendored documentation and configuration files"`
}

// ListInput is the input schema for the blamethrower_list tool.
type ListInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"restrict to analyzer or repo"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// StatsOutput is the data of a blamethrower_stats result.
type StatsOutput struct {
	RunID   string        `json:"run_id"`
	Summary merge.Summary `json:"summary"`
	Stats   stats.Result  `json:"stats"`
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	in StatsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePaths(in.Bugs, in.Blame, in.RepoPath, in.Records)
	if err != nil {
		return errorResult(err)
	}

	src := runner.Sources{
		Analyzer:        in.Analyzer,
		AnalyzerOptions: in.AnalyzerOptions,
		Bugs:            in.Bugs,
		Repo:            in.Repo,
		RepoOptions:     in.RepoOptions,
		Blame:           in.Blame,
		RepoPath:        in.RepoPath,
		Records:         in.Records,
	}

	result, outcome, err := s.runner.Stats(ctx, src, runner.Options{
		Validate:     !in.NoValidate,
		SkipVendored: in.SkipVendored,
	})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(StatsOutput{RunID: outcome.RunID, Summary: outcome.Summary, Stats: result})
}

func (s *Server) handleList(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	in ListInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	sources := []registry.Descriptor{}

	for _, desc := range s.runner.Registry().All() {
		if in.Kind == "" || desc.Kind == registry.Kind(in.Kind) {
			sources = append(sources, desc)
		}
	}

	return jsonResult(sources)
}

func validatePaths(paths ...string) error {
	for _, path := range paths {
		switch {
		case path == "":
		case path == input.Stdio:
			return ErrStdinPath
		case !filepath.IsAbs(path):
			return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
		}
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
