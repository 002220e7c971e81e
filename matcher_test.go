package consent

import (
	"errors"
	"testing"
)

func TestPatternMatcher(t *testing.T) {
	matcher := NewPatternMatcher(PatternWithProgramCache(NewMemoryProgramCache()))

	cases := []struct {
		name       string
		geo        string
		expression string
		want       bool
	}{
		{name: "exact", geo: "DE", expression: "DE", want: true},
		{name: "alternation", geo: "US-CA", expression: "US-CA|US-VA", want: true},
		{name: "prefix class", geo: "FR", expression: "AT|BE|FR|DE", want: true},
		{name: "no match", geo: "US-TX", expression: "US-CA|US-VA", want: false},
		{name: "substring semantics", geo: "US-CA", expression: "US-", want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := matcher.Match(MatchContext{Geo: tc.geo}, tc.expression)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got != tc.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tc.geo, tc.expression, got, tc.want)
			}
		})
	}
}

func TestPatternMatcherBadExpression(t *testing.T) {
	matcher := NewPatternMatcher()
	_, err := matcher.Match(MatchContext{Geo: "DE"}, "US-(")
	if err == nil {
		t.Fatal("expected compile error")
	}
	var matchErr *MatchError
	if !errors.As(err, &matchErr) {
		t.Fatalf("expected MatchError, got %T", err)
	}
	if matchErr.Engine != "pattern" {
		t.Errorf("engine mismatch: %q", matchErr.Engine)
	}
}

func TestPatternMatcherEmptyExpression(t *testing.T) {
	matcher := NewPatternMatcher()
	if _, err := matcher.Match(MatchContext{Geo: "DE"}, ""); err == nil {
		t.Fatal("expected error on empty expression")
	}
}

func TestPatternMatcherReusesCachedProgram(t *testing.T) {
	cache := NewMemoryProgramCache()
	matcher := NewPatternMatcher(PatternWithProgramCache(cache))

	if _, err := matcher.Match(MatchContext{Geo: "DE"}, "DE|AT"); err != nil {
		t.Fatalf("first match: %v", err)
	}
	if _, ok := cache.Get("DE|AT"); !ok {
		t.Fatal("expected compiled pattern in cache")
	}
	if _, err := matcher.Match(MatchContext{Geo: "AT"}, "DE|AT"); err != nil {
		t.Fatalf("second match: %v", err)
	}
}

func TestExprMatcher(t *testing.T) {
	matcher := NewExprMatcher(ExprWithProgramCache(NewMemoryProgramCache()))

	got, err := matcher.Match(MatchContext{Geo: "US-CA"}, `geo startsWith "US-"`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !got {
		t.Error("expected match")
	}

	got, err = matcher.Match(MatchContext{Geo: "DE"}, `geo in ["AT", "BE", "FR"]`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got {
		t.Error("expected no match")
	}
}

func TestExprMatcherWithFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("ineu", func(args ...any) (any, error) {
		if len(args) != 1 {
			return false, nil
		}
		geo, _ := args[0].(string)
		switch geo {
		case "DE", "FR", "AT":
			return true, nil
		}
		return false, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	matcher := NewExprMatcher(
		ExprWithProgramCache(NewMemoryProgramCache()),
		ExprWithFunctionRegistry(registry),
	)

	got, err := matcher.Match(MatchContext{Geo: "DE"}, `ineu(geo)`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !got {
		t.Error("expected registry function to match")
	}
}

func TestCELMatcher(t *testing.T) {
	matcher := NewCELMatcher(CELWithProgramCache(NewMemoryProgramCache()))

	got, err := matcher.Match(MatchContext{Geo: "US-CA"}, `geo.startsWith("US-")`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !got {
		t.Error("expected match")
	}

	got, err = matcher.Match(MatchContext{Geo: "BR"}, `geo == "DE" || geo == "FR"`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if got {
		t.Error("expected no match")
	}
}

func TestCELMatcherWithFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("strict", func(...any) (any, error) {
		return true, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	matcher := NewCELMatcher(
		CELWithProgramCache(NewMemoryProgramCache()),
		CELWithFunctionRegistry(registry),
	)

	got, err := matcher.Match(MatchContext{Geo: "DE"}, `call("strict")`)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !got {
		t.Error("expected registry function to match")
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()

	if err := registry.Register("", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Error("expected error for empty name")
	}
	if err := registry.Register("fn", nil); err == nil {
		t.Error("expected error for nil function")
	}
	if err := registry.Register("fn", func(...any) (any, error) { return "ok", nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("FN", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Error("expected duplicate detection to be case insensitive")
	}

	result, err := registry.Call("Fn")
	if err != nil || result != "ok" {
		t.Errorf("call: result=%v err=%v", result, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Error("expected error for unregistered function")
	}
}

func TestTruthy(t *testing.T) {
	cases := map[string]struct {
		value any
		want  bool
	}{
		"nil":          {nil, false},
		"true":         {true, true},
		"false":        {false, false},
		"empty string": {"", false},
		"string":       {"US", true},
		"zero int":     {0, false},
		"int":          {3, true},
		"zero float":   {0.0, false},
		"empty slice":  {[]any{}, false},
		"slice":        {[]any{"US-CA"}, true},
	}
	for name, tc := range cases {
		if got := truthy(tc.value); got != tc.want {
			t.Errorf("truthy(%s) = %v, want %v", name, got, tc.want)
		}
	}
}
