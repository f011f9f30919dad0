// Package validation checks document metadata against the engine schema
// before it is written to a file. Custom keys pass through freely; the
// reserved keys must carry well-formed values or the save is refused.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMetadataInvalid marks every metadata validation failure.
var ErrMetadataInvalid = errors.New("metadata validation failed")

// Issue captures a single validation failure.
type Issue struct {
	Location string
	Message  string
}

// MetadataError surfaces validation issues with their JSON locations.
type MetadataError struct {
	Issues []Issue
	Cause  error
}

func (e *MetadataError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrMetadataInvalid.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *MetadataError) Unwrap() error {
	return ErrMetadataInvalid
}

// Issues extracts validation issues from an error.
func Issues(err error) []Issue {
	if err == nil {
		return nil
	}
	var metaErr *MetadataError
	if errors.As(err, &metaErr) && metaErr != nil {
		return metaErr.Issues
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return collectIssues(validationErr)
	}
	return []Issue{{Message: err.Error()}}
}

const uuidPattern = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`

// metadataSchema constrains reserved keys only; additional properties are the
// author's business.
var metadataSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		"id":         map[string]any{"type": "string", "pattern": uuidPattern},
		"title":      map[string]any{"type": "string"},
		"title_mode": map[string]any{"type": "string", "enum": []any{"auto", "manual"}},
		"status":     map[string]any{"type": "string", "enum": []any{"draft", "published"}},
		"published":  map[string]any{"type": "boolean"},
		"layout":     map[string]any{"type": "string"},
		"permalink":  map[string]any{"type": "string"},
		"created_at": map[string]any{"type": "string", "format": "date-time"},
		"updated_at": map[string]any{"type": "string", "format": "date-time"},
		"published_at": map[string]any{
			"type": "string", "format": "date-time",
		},
		"date": map[string]any{"type": "string"},
		"tags": map[string]any{
			"anyOf": []any{
				map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				map[string]any{"type": "string"},
			},
		},
	},
	"additionalProperties": true,
}

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

func schema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		encoded, err := json.Marshal(metadataSchema)
		if err != nil {
			compileErr = err
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource("metadata.json", bytes.NewReader(encoded)); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = compiler.Compile("metadata.json")
	})
	return compiled, compileErr
}

// ValidateMetadata checks a metadata map against the engine schema.
func ValidateMetadata(meta map[string]any) error {
	if meta == nil {
		return nil
	}

	s, err := schema()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataInvalid, err)
	}

	// round-trip through JSON so YAML-decoded values (int, []any) carry the
	// types the validator expects
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataInvalid, err)
	}
	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataInvalid, err)
	}

	if err := s.Validate(payload); err != nil {
		return &MetadataError{Issues: Issues(err), Cause: err}
	}
	return nil
}

func collectIssues(err *jsonschema.ValidationError) []Issue {
	if err == nil {
		return nil
	}
	issues := []Issue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, Issue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
