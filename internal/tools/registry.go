// Package tools exposes read-only query tools over the team stats store and
// the live scoreboard. Each tool has a declared parameter list and returns
// human-readable text plus structured data.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"nflstats/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrUnknownTool is returned by Call for an unregistered name
var ErrUnknownTool = errors.New("unknown tool")

// ArgError reports an invalid or missing argument
type ArgError struct {
	Param string
	Msg   string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Msg)
}

// ParamType is the JSON type a parameter accepts
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
)

// Param describes one tool parameter
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// ToolSpec is the advertised contract of a tool
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ReadOnly    bool    `json:"read_only"`
	Idempotent  bool    `json:"idempotent"`
	Params      []Param `json:"params"`
}

// Result is a tool's output
type Result struct {
	Text string `json:"text"`
	Data any    `json:"data,omitempty"`
}

// Handler executes a tool with validated arguments
type Handler func(ctx context.Context, args Args) (Result, error)

type tool struct {
	spec    ToolSpec
	handler Handler
}

// Registry holds the available tools
type Registry struct {
	tools map[string]tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]tool)}
}

// Register adds a tool; a second registration under the same name replaces
// the first
func (r *Registry) Register(spec ToolSpec, h Handler) {
	r.tools[spec.Name] = tool{spec: spec, handler: h}
}

// Specs lists registered tools sorted by name
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, t.spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Call validates args against the tool's params and runs it
func (r *Registry) Call(ctx context.Context, name string, args Args) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = Args{}
	}

	start := time.Now()

	if err := validate(t.spec, args); err != nil {
		metrics.RecordToolCall(name, "invalid", time.Since(start).Seconds())
		return Result{}, err
	}

	result, err := t.handler(ctx, args)
	if err != nil {
		status := "error"
		var argErr *ArgError
		if errors.As(err, &argErr) {
			status = "invalid"
		}
		metrics.RecordToolCall(name, status, time.Since(start).Seconds())
		log.Error().Err(err).Str("tool", name).Msg("Tool call failed")
		return Result{}, err
	}

	metrics.RecordToolCall(name, "success", time.Since(start).Seconds())
	log.Debug().
		Str("tool", name).
		Dur("duration", time.Since(start)).
		Msg("Tool call completed")

	return result, nil
}

func validate(spec ToolSpec, args Args) error {
	for _, p := range spec.Params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return &ArgError{Param: p.Name, Msg: "is required"}
			}
			continue
		}

		switch p.Type {
		case TypeString:
			if _, ok := v.(string); !ok {
				return &ArgError{Param: p.Name, Msg: "must be a string"}
			}
		case TypeInteger:
			if _, err := toInt(v); err != nil {
				return &ArgError{Param: p.Name, Msg: err.Error()}
			}
		}
	}
	return nil
}

// Args are decoded JSON tool arguments
type Args map[string]any

// String returns a trimmed string argument
func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Int returns an integer argument. Validation has already checked the type.
func (a Args) Int(name string) (int, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return 0, false
	}
	n, err := toInt(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IntPtr is Int returning nil when absent
func (a Args) IntPtr(name string) *int {
	n, ok := a.Int(name)
	if !ok {
		return nil
	}
	return &n
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, errors.New("must be an integer")
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.New("must be an integer")
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, errors.New("must be an integer")
		}
		return i, nil
	}
	return 0, errors.New("must be an integer")
}
