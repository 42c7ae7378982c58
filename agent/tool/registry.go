package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
)

// InputParam is the single string parameter every tool exposes to the model.
const InputParam = "input"

// Handler turns decoded arguments into a success payload. Errors become
// error payloads at the registry boundary.
type Handler func(ctx context.Context, args Args) (any, error)

type OptionalArg struct {
	Name    string
	Default string
}

type ToolSpec struct {
	Name        string
	Description string
	Required    []string
	Optional    []OptionalArg
	Handler     Handler
}

// Schema renders the argument list in codec syntax, for example
// "vehicle_type=<vehicle_type>;limit=<limit, default 20>".
func (s ToolSpec) Schema() string {
	parts := make([]string, 0, len(s.Required)+len(s.Optional))
	for _, name := range s.Required {
		parts = append(parts, fmt.Sprintf("%s=<%s>", name, name))
	}
	for _, opt := range s.Optional {
		if opt.Default == "" {
			parts = append(parts, fmt.Sprintf("%s=<%s, optional>", opt.Name, opt.Name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=<%s, default %s>", opt.Name, opt.Name, opt.Default))
	}
	return strings.Join(parts, pairSeparator)
}

func (s ToolSpec) Info() *schema.ToolInfo {
	desc := "Arguments as semicolon separated key=value pairs: " + s.Schema()
	if len(s.Required) == 0 {
		desc += ". May be empty."
	}
	return &schema.ToolInfo{
		Name: s.Name,
		Desc: s.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			InputParam: {Type: schema.String, Desc: desc, Required: len(s.Required) > 0},
		}),
	}
}

func (s ToolSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("tool name is required")
	}
	if s.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", s.Name)
	}
	return nil
}

// Registry resolves tool calls by name. It implements contract.ToolGateway.
type Registry struct {
	specs map[string]ToolSpec
	order []string
}

func NewRegistry(specs ...ToolSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]ToolSpec, len(specs))}
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.specs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %s", spec.Name)
		}
		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)
	}
	return r, nil
}

// Specs returns the registered tools in registration order.
func (r *Registry) Specs() []ToolSpec {
	out := make([]ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.specs[name].Info())
	}
	return infos
}

// Execute runs the requests one at a time, in order.
func (r *Registry) Execute(ctx context.Context, reqs []contractx.ToolRequest) []contractx.ToolResult {
	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		res := r.Invoke(ctx, req.Tool, req.Input)
		res.CallID = req.CallID
		results = append(results, res)
	}
	return results
}

// Invoke decodes raw and calls the named tool. It always returns a result;
// failures are reported in ToolResult.Error.
func (r *Registry) Invoke(ctx context.Context, name, raw string) contractx.ToolResult {
	start := time.Now()

	spec, ok := r.specs[name]
	if !ok {
		metricsx.ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		log.Warn().Str("tool", name).Msg("unknown tool requested")
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Sprintf("unknown tool %q (available: %s)", name, strings.Join(r.order, ", ")),
		}
	}

	result, err := r.call(ctx, spec, raw)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metricsx.ToolCallsTotal.WithLabelValues(spec.Name, outcome).Inc()

	logEvent := log.Info()
	if err != nil {
		logEvent = log.Warn().Err(err)
	}
	logEvent.
		Str("tool", spec.Name).
		Str("outcome", outcome).
		Dur("elapsed", time.Since(start)).
		Msg("tool invoked")

	if err != nil {
		return contractx.ToolResult{Tool: spec.Name, Error: err.Error()}
	}
	return contractx.ToolResult{Tool: spec.Name, Result: result}
}

func (r *Registry) call(ctx context.Context, spec ToolSpec, raw string) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("tool", spec.Name).Interface("panic", p).Msg("tool handler panicked")
			result, err = nil, fmt.Errorf("tool %s failed unexpectedly: %v", spec.Name, p)
		}
	}()

	args, err := ParseArgs(unwrapInput(raw), spec.Required...)
	if err != nil {
		return nil, err
	}
	for _, opt := range spec.Optional {
		if _, ok := args[opt.Name]; !ok && opt.Default != "" {
			args[opt.Name] = opt.Default
		}
	}
	return spec.Handler(ctx, args)
}

// unwrapInput accepts the JSON tool arguments produced by function calling.
// {"input":"k=v"} yields the inner string; a flat JSON object of scalars is
// re-encoded as key=value pairs; anything else is returned unchanged.
func unwrapInput(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return raw
	}
	if input, ok := fields[InputParam].(string); ok {
		return input
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			parts = append(parts, k+valueSeparator+v)
		case float64, bool:
			parts = append(parts, fmt.Sprintf("%s%s%v", k, valueSeparator, v))
		case nil:
		default:
			return raw
		}
	}
	return strings.Join(parts, pairSeparator)
}
