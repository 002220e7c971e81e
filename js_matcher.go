//go:build js_eval

package consent

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsMatcher evaluates route expressions as JavaScript using goja, so route
// tables written for browser deployments run unchanged: expressions see the
// geo string as "geo" and can use string methods like geo.match(/US-.+/).
type jsMatcher struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSMatcher constructs a RouteMatcher backed by goja.
func NewJSMatcher(opts ...JSMatcherOption) RouteMatcher {
	cfg := applyJSMatcherOptions(opts)
	return &jsMatcher{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (m *jsMatcher) Match(ctx MatchContext, expression string) (bool, error) {
	if expression == "" {
		return false, wrapMatcherError("js", fmt.Errorf("expression must not be empty"))
	}
	if m.cache == nil {
		return m.run(ctx, expression, nil)
	}
	program, err := m.loadOrCompile(expression)
	if err != nil {
		return false, err
	}
	return m.run(ctx, expression, program)
}

func (m *jsMatcher) loadOrCompile(expression string) (*goja.Program, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", m.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapMatchError("js", expression, "", err)
	}
	if m.cache != nil {
		m.cache.Set(expression, program)
	}
	return program, nil
}

func (m *jsMatcher) run(ctx MatchContext, expression string, program *goja.Program) (bool, error) {
	vm := goja.New()
	m.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return false, wrapMatchError("js", expression, ctx.Geo, err)
		}
		return truthy(value.Export()), nil
	}
	value, err := vm.RunString(m.wrapExpression(expression))
	if err != nil {
		return false, wrapMatchError("js", expression, ctx.Geo, err)
	}
	return truthy(value.Export()), nil
}

func (m *jsMatcher) injectContext(vm *goja.Runtime, ctx MatchContext) {
	vm.Set("geo", ctx.Geo)
	if m.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return m.registry.Call(name, arguments...)
		})
		for _, name := range m.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return m.registry.Call(fn, arguments...)
			})
		}
	}
}

func (m *jsMatcher) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

func jsMatcherAvailable() bool {
	return true
}
