// Package tool defines the contract between the agent and its executable
// operations: typed parameter specifications, normalized results, a
// per-agent registry, and the validate/execute/retry pipeline.
package tool

import (
	"fmt"
	"regexp"
	"sort"
)

// ParamType is the declared type tag of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

var knownTypes = map[ParamType]bool{
	TypeString:  true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeObject:  true,
	TypeArray:   true,
}

// Param describes a single tool parameter.
type Param struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
}

// Example is an input/output pair attached to a spec for documentation.
type Example struct {
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output,omitempty"`
}

// Spec is the immutable public description of a tool.
type Spec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Params      map[string]Param `json:"parameters,omitempty"`
	Examples    []Example        `json:"examples,omitempty"`
}

// Validate checks the spec for construction-time errors: empty name,
// unknown type tags, required parameters carrying defaults, and
// uncompilable patterns. A failing spec must never reach a registry.
func (s Spec) Validate() error {
	if s.Name == "" {
		return &SpecError{Reason: "tool name is empty"}
	}
	for name, p := range s.Params {
		if !knownTypes[p.Type] {
			return &SpecError{Tool: s.Name, Reason: fmt.Sprintf("parameter %q has unknown type %q", name, p.Type)}
		}
		if p.Required && p.Default != nil {
			return &SpecError{Tool: s.Name, Reason: fmt.Sprintf("required parameter %q must not declare a default", name)}
		}
		if p.Pattern != "" {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				return &SpecError{Tool: s.Name, Reason: fmt.Sprintf("parameter %q has invalid pattern: %v", name, err)}
			}
		}
	}
	return nil
}

// ParamNames returns the parameter names in a stable sorted order.
func (s Spec) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema exports the spec's parameters as a JSON-Schema-like object of the
// shape model providers expect for function calling: an "object" with
// "properties" and a "required" list.
func (s Spec) Schema() map[string]any {
	properties := make(map[string]any, len(s.Params))
	required := make([]string, 0)

	for _, name := range s.ParamNames() {
		p := s.Params[name]
		prop := map[string]any{
			"type": string(p.Type),
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[name] = prop

		if p.Required {
			required = append(required, name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
