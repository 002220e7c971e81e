package consent

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprMatcherOption configures an expr matcher instance.
type ExprMatcherOption func(*exprMatcher)

// ExprWithProgramCache wires a ProgramCache into the expr matcher.
func ExprWithProgramCache(cache ProgramCache) ExprMatcherOption {
	return func(m *exprMatcher) {
		m.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr matcher.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprMatcherOption {
	return func(m *exprMatcher) {
		if registry == nil {
			return
		}
		m.registry = registry.Clone()
	}
}

// exprMatcher evaluates route expressions using github.com/expr-lang/expr.
// Expressions see the geo string as "geo", e.g. `geo startsWith "US-"`.
type exprMatcher struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprMatcher constructs a RouteMatcher backed by expr-lang/expr.
func NewExprMatcher(opts ...ExprMatcherOption) RouteMatcher {
	m := &exprMatcher{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Match compiles and runs expression against the match context.
func (m *exprMatcher) Match(ctx MatchContext, expression string) (bool, error) {
	if expression == "" {
		return false, wrapMatcherError("expr", fmt.Errorf("expression must not be empty"))
	}
	env := m.environment(ctx)
	if m.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return false, wrapMatchError("expr", expression, ctx.Geo, err)
		}
		return truthy(result), nil
	}
	program, err := m.loadOrCompile(expression)
	if err != nil {
		return false, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return false, wrapMatchError("expr", expression, ctx.Geo, err)
	}
	return truthy(result), nil
}

func (m *exprMatcher) loadOrCompile(expression string) (*exprvm.Program, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range m.registryNames() {
		fn := m.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapMatchError("expr", expression, "", err)
	}
	if m.cache != nil {
		m.cache.Set(expression, program)
	}
	return program, nil
}

func (m *exprMatcher) environment(ctx MatchContext) map[string]any {
	env := map[string]any{
		"geo": ctx.Geo,
	}
	if m.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return m.registry.Call(name, arguments...)
		}
		for _, name := range m.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return m.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

func (m *exprMatcher) registryNames() []string {
	if m == nil || m.registry == nil {
		return nil
	}
	return m.registry.Names()
}

func (m *exprMatcher) registryFunction(name string) func(...any) (any, error) {
	if m == nil || m.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return m.registry.Call(name, arguments...)
	}
}
