package consent

import (
	"fmt"
	"regexp"
	"sync"
)

// MatchContext carries the facts a route expression can test.
type MatchContext struct {
	Geo string
}

// RouteMatcher decides whether a geo-route expression matches the visitor.
// Implementations back the expression with different engines; the default is
// pattern matching for parity with regex-style route tables.
type RouteMatcher interface {
	Match(ctx MatchContext, expression string) (bool, error)
}

// RouteMatcherFunc adapts a function to RouteMatcher.
type RouteMatcherFunc func(ctx MatchContext, expression string) (bool, error)

// Match implements RouteMatcher.
func (f RouteMatcherFunc) Match(ctx MatchContext, expression string) (bool, error) {
	if f == nil {
		return false, nil
	}
	return f(ctx, expression)
}

// ProgramCache stores compiled route programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is an unbounded in-process ProgramCache. Route tables are
// small and static, so eviction is not worth the machinery.
type MemoryProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMemoryProgramCache constructs an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: map[string]any{}}
}

// Get returns the cached program for key.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

// Set stores program under key.
func (c *MemoryProgramCache) Set(key string, program any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = program
}

// PatternMatcherOption configures a PatternMatcher.
type PatternMatcherOption func(*PatternMatcher)

// PatternWithProgramCache wires a ProgramCache into the pattern matcher.
func PatternWithProgramCache(cache ProgramCache) PatternMatcherOption {
	return func(m *PatternMatcher) {
		m.cache = cache
	}
}

// PatternMatcher treats route expressions as regular expressions tested
// against the geo string, unanchored, the way a route table written as
// "US-CA|US-VA" expects.
type PatternMatcher struct {
	cache ProgramCache
}

// NewPatternMatcher constructs the default matcher.
func NewPatternMatcher(opts ...PatternMatcherOption) *PatternMatcher {
	m := &PatternMatcher{}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Match implements RouteMatcher.
func (m *PatternMatcher) Match(ctx MatchContext, expression string) (bool, error) {
	if expression == "" {
		return false, wrapMatcherError("pattern", fmt.Errorf("expression must not be empty"))
	}
	pattern, err := m.loadOrCompile(expression)
	if err != nil {
		return false, err
	}
	return pattern.MatchString(ctx.Geo), nil
}

func (m *PatternMatcher) loadOrCompile(expression string) (*regexp.Regexp, error) {
	if m.cache != nil {
		if cached, ok := m.cache.Get(expression); ok {
			if pattern, ok := cached.(*regexp.Regexp); ok {
				return pattern, nil
			}
		}
	}
	pattern, err := regexp.Compile(expression)
	if err != nil {
		return nil, wrapMatchError("pattern", expression, "", err)
	}
	if m.cache != nil {
		m.cache.Set(expression, pattern)
	}
	return pattern, nil
}

// truthy converts an engine result into a match decision. Engines that return
// non-boolean values (a matched substring, a count) are treated as matched
// when the value is non-empty and non-zero.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case uint64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}
