//go:build !js_eval

package consent

// NewJSMatcher is unavailable without the js_eval build tag.
func NewJSMatcher(opts ...JSMatcherOption) RouteMatcher {
	_ = applyJSMatcherOptions(opts)
	return nil
}

func jsMatcherAvailable() bool {
	return false
}
