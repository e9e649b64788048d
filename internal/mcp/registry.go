package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler executes one tool invocation. Failures are reported through the
// ToolResult, never as a panic or an escaping error.
type Handler func(ctx context.Context, args map[string]any) ToolResult

// Registration pairs a tool descriptor with its handler.
type Registration struct {
	Tool    Tool
	Handler Handler
}

type entry struct {
	tool         Tool
	schema       *jsonschema.Schema
	required     []string
	displayNames map[string]string
	handler      Handler
}

// Registry is the fixed set of tools served by an adapter. It is built once
// at construction and never mutated afterwards, so it is safe to share
// across concurrent sessions without locking.
type Registry struct {
	order   []string
	entries map[string]*entry
}

// NewRegistry compiles and indexes the given registrations. A duplicate
// tool name or an input schema that fails to compile is a construction
// error; callers treat it as fatal.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{entries: make(map[string]*entry, len(regs))}
	for _, reg := range regs {
		name := reg.Tool.Name
		if name == "" {
			return nil, fmt.Errorf("tool registration with empty name")
		}
		if _, exists := r.entries[name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		sch, required, err := compileSchema(name, reg.Tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}
		r.entries[name] = &entry{
			tool:         reg.Tool,
			schema:       sch,
			required:     required,
			displayNames: propertyTitles(reg.Tool.InputSchema),
			handler:      reg.Handler,
		}
		r.order = append(r.order, name)
	}
	return r, nil
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool)
	}
	return out
}

func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// validate checks arguments against the tool's schema. It returns an empty
// string when the arguments are acceptable, otherwise a human-readable
// message suitable for a Failure result.
func (e *entry) validate(args map[string]any) string {
	for _, prop := range e.required {
		v, ok := args[prop]
		if !ok {
			return fmt.Sprintf("%s parameter is required", e.displayName(prop))
		}
		if s, isString := v.(string); isString && s == "" {
			return fmt.Sprintf("%s parameter is required", e.displayName(prop))
		}
	}
	if e.schema != nil {
		if err := e.schema.Validate(toJSONValue(args)); err != nil {
			return fmt.Sprintf("Invalid arguments: %v", err)
		}
	}
	return ""
}

// displayName resolves how a property is named in user-facing messages:
// the schema property's title when set, the raw property name otherwise.
func (e *entry) displayName(prop string) string {
	if title, ok := e.displayNames[prop]; ok {
		return title
	}
	return prop
}

// propertyTitles collects the title annotation of each schema property.
func propertyTitles(schema map[string]any) map[string]string {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	titles := make(map[string]string)
	for name, raw := range props {
		if prop, ok := raw.(map[string]any); ok {
			if title, ok := prop["title"].(string); ok && title != "" {
				titles[name] = title
			}
		}
	}
	return titles
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, []string, error) {
	if schema == nil {
		return nil, nil, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal input schema: %w", err)
	}
	sch, err := jsonschema.CompileString("inline://"+name+".json", string(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("compile input schema: %w", err)
	}
	var required []string
	if req, ok := schema["required"].([]string); ok {
		required = req
	} else if req, ok := schema["required"].([]any); ok {
		for _, v := range req {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	return sch, required, nil
}

// toJSONValue normalizes args through a marshal round-trip so the schema
// validator sees plain JSON types (float64 numbers, []any arrays) even when
// callers built the map with concrete Go types.
func toJSONValue(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
