package consent

import (
	"errors"
	"fmt"
	"strings"
)

// MatchError captures matcher metadata alongside the originating error.
type MatchError struct {
	Engine string
	Expr   string
	Geo    string
	Err    error
}

func (e *MatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("consent: %s matcher %s geo=%q: %v", e.Engine, describeExpression(e.Expr), e.Geo, e.Err)
}

func (e *MatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapMatcherError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var matchErr *MatchError
	if errors.As(err, &matchErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "consent:") {
		return err
	}
	return fmt.Errorf("consent: %s matcher: %w", engine, err)
}

func wrapMatchError(engine, expr, geo string, err error) error {
	if err == nil {
		return nil
	}

	var matchErr *MatchError
	if errors.As(err, &matchErr) {
		if matchErr.Engine == "" {
			matchErr.Engine = engine
		}
		if matchErr.Expr == "" {
			matchErr.Expr = expr
		}
		if matchErr.Geo == "" {
			matchErr.Geo = geo
		}
		return matchErr
	}

	return &MatchError{
		Engine: engine,
		Expr:   expr,
		Geo:    geo,
		Err:    err,
	}
}
