package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/analyzers/modkind"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/dataset"
	"github.com/GeoffreyBooth/node-import-file-specifier-resolution-proposal/pkg/importmodel"
)

// Tool name constants.
const (
	ToolNameCount    = "esmstat_count"
	ToolNameClassify = "esmstat_classify"
)

// Sentinel errors for tool input validation.
var (
	ErrEmptyDatasetPath       = errors.New("dataset_path is required and must not be empty")
	ErrDatasetPathNotAbsolute = errors.New("dataset_path must be an absolute path")
	ErrDatasetNotFound        = errors.New("dataset file does not exist")
	ErrEmptyType              = errors.New("type is required and must not be empty")
)

// CountInput is the input schema for the esmstat_count tool.
type CountInput struct {
	DatasetPath        string `json:"dataset_path"                   jsonschema:"absolute path to the dataset file"`
	LegacyPackageAlias bool   `json:"legacy_package_alias,omitempty" jsonschema:"treat the legacy package type as a package entry point"`
	Lenient            bool   `json:"lenient,omitempty"              jsonschema:"skip malformed records instead of failing"`
}

// ClassifyInput is the input schema for the esmstat_classify tool.
type ClassifyInput struct {
	Type               string `json:"type"                           jsonschema:"import category: package entry point, package deep import or file"`
	IsEsm              *bool  `json:"is_esm,omitempty"               jsonschema:"whether the target is an ES module; omit when unknown"`
	IsCjs              bool   `json:"is_cjs,omitempty"               jsonschema:"whether the target is a CommonJS module"`
	Unresolved         bool   `json:"unresolved,omitempty"           jsonschema:"the import target could not be resolved"`
	LegacyPackageAlias bool   `json:"legacy_package_alias,omitempty" jsonschema:"treat the legacy package type as a package entry point"`
}

// ClassifyResult is the esmstat_classify response.
type ClassifyResult struct {
	Bucket   string `json:"bucket"`
	Counted  bool   `json:"counted"`
	Excluded string `json:"excluded,omitempty"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleCount(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CountInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateDatasetPath(input.DatasetPath)
	if err != nil {
		return errorResult(err)
	}

	analyzer := &modkind.Analyzer{
		Options: modkind.Options{
			Policy:  modkind.Policy{LegacyPackageAlias: input.LegacyPackageAlias},
			Workers: s.deps.Workers,
		},
		Load:    dataset.Options{Lenient: input.Lenient, Logger: s.deps.Logger},
		Tracer:  s.deps.Tracer,
		Metrics: s.deps.ImportMetrics,
		Logger:  s.deps.Logger,
	}

	summary, err := analyzer.Run(ctx, input.DatasetPath)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summary)
}

func handleClassify(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ClassifyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Type == "" {
		return errorResult(ErrEmptyType)
	}

	info := importmodel.ImportInfo{
		Type:       importmodel.ImportType(input.Type),
		IsEsm:      importmodel.EsmFlagFromPtr(input.IsEsm),
		IsCjs:      input.IsCjs,
		Unresolved: input.Unresolved,
	}

	outcome := modkind.Classify(info, modkind.Policy{LegacyPackageAlias: input.LegacyPackageAlias})

	result := ClassifyResult{Bucket: outcome.Bucket.String(), Counted: outcome.Counted()}
	if !outcome.Counted() {
		result.Excluded = outcome.Excluded.String()
	}

	return jsonResult(result)
}

func validateDatasetPath(path string) error {
	if path == "" {
		return ErrEmptyDatasetPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrDatasetPathNotAbsolute, path)
	}

	_, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
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
