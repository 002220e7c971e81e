package consent

type jsMatcherConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSMatcherOption configures the JS matcher.
type JSMatcherOption func(*jsMatcherConfig)

// JSWithProgramCache applies a ProgramCache to the JS matcher.
func JSWithProgramCache(cache ProgramCache) JSMatcherOption {
	return func(cfg *jsMatcherConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS matcher.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSMatcherOption {
	return func(cfg *jsMatcherConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyJSMatcherOptions(opts []JSMatcherOption) jsMatcherConfig {
	cfg := jsMatcherConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
