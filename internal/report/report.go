// Package report validates scan artifacts and aggregates them into summaries.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/example/wp-secmeta/internal/detector"
)

//go:embed schema.json
var artifactSchema []byte

const schemaResource = "inmemory://scan-artifact.json"

// Stats aggregates a scan artifact.
type Stats struct {
	Results      int            `json:"results"`
	Targets      int            `json:"targets"`
	Passing      int            `json:"passing"`
	Failing      int            `json:"failing"`
	Inconsistent int            `json:"inconsistent"`
	Errors       int            `json:"errors"`
	Issues       int            `json:"issues"`
	BySeverity   map[string]int `json:"bySeverity"`
}

// Validate checks a JSON scan artifact against the embedded schema.
func Validate(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaResource, bytes.NewReader(artifactSchema)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(schemaResource)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	if err := compiled.Validate(payload); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}
	return nil
}

// Load validates and decodes a JSON scan artifact.
func Load(data []byte) ([]detector.Result, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var results []detector.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return results, nil
}

// Aggregate counts outcomes across results.
func Aggregate(results []detector.Result) Stats {
	stats := Stats{Results: len(results), BySeverity: map[string]int{}}
	targets := map[string]struct{}{}

	for _, res := range results {
		targets[res.Target] = struct{}{}
		stats.BySeverity[res.Severity]++

		switch {
		case res.Severity == detector.SeverityError:
			stats.Errors++
		case res.Passed():
			stats.Passing++
		default:
			stats.Failing++
		}

		if res.Security != nil {
			stats.Issues += len(res.Security.Issues)
			if !res.Security.Consistent {
				stats.Inconsistent++
			}
		}
	}

	stats.Targets = len(targets)
	return stats
}
