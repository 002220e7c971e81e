package consent

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELMatcherOption configures the CEL matcher.
type CELMatcherOption func(*celMatcher)

// CELWithProgramCache wires a ProgramCache into the CEL matcher.
func CELWithProgramCache(cache ProgramCache) CELMatcherOption {
	return func(m *celMatcher) {
		m.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL matcher.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELMatcherOption {
	return func(m *celMatcher) {
		if registry == nil {
			return
		}
		m.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

// celMatcher evaluates route expressions using cel-go. Expressions see the
// geo string as "geo", e.g. `geo.startsWith("US-")`.
type celMatcher struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELMatcher constructs a RouteMatcher backed by cel-go.
func NewCELMatcher(opts ...CELMatcherOption) RouteMatcher {
	m := &celMatcher{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *celMatcher) Match(ctx MatchContext, expression string) (bool, error) {
	if expression == "" {
		return false, wrapMatcherError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := m.loadOrCompile(expression)
	if err != nil {
		return false, err
	}
	out, _, err := program.program.Eval(m.activation(ctx))
	if err != nil {
		return false, wrapMatchError("cel", expression, ctx.Geo, err)
	}
	return truthy(out.Value()), nil
}

func (m *celMatcher) loadOrCompile(expression string) (*celProgram, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := m.buildEnv()
	if err != nil {
		return nil, wrapMatchError("cel", expression, "", err)
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapMatchError("cel", expression, "", issues.Err())
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, wrapMatchError("cel", expression, "", issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapMatchError("cel", expression, "", err)
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if m.cache != nil {
		m.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (m *celMatcher) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("geo", celgo.StringType),
	}
	if m.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_dyn",
			[]*celgo.Type{celgo.StringType},
			celgo.DynType,
			celgo.FunctionBinding(m.callBinding()),
		)))
	}
	return celgo.NewEnv(opts...)
}

func (m *celMatcher) activation(ctx MatchContext) map[string]any {
	activation := map[string]any{
		"geo": ctx.Geo,
	}
	if m.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return m.registry.Call(name, arguments...)
		}
	}
	return activation
}

func (m *celMatcher) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if m.registry == nil {
			return types.NewErr("consent: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("consent: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("consent: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := m.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
