package consent

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-consent/internal/hydrate"
	"github.com/goliatone/go-consent/layering"
)

// Resolution is the outcome of resolving raw configuration into one effective
// snapshot. Diagnostics collects the non-fatal problems encountered on the
// way; every one of them was recovered with a documented safe default.
type Resolution struct {
	Config      *Config
	Categories  map[string]*Category
	Geo         string
	Locale      string
	Routed      []string
	Diagnostics []error
}

// Resolver merges layered configuration into an effective snapshot: library
// defaults, then user config, then locale overrides, then any geo-matched
// route overrides. Resolution never fails on malformed routing or model data;
// those degrade to the base configuration with a diagnostic.
type Resolver struct {
	Matcher RouteMatcher
	Logger  Logger
	Env     Environment

	// GeoLocate is used when the configuration itself carries no hook, which
	// is always the case for JSON-shaped input.
	GeoLocate GeoLocateFunc
}

// NewResolver constructs a Resolver with the default pattern matcher.
func NewResolver() *Resolver {
	return &Resolver{
		Matcher: NewPatternMatcher(PatternWithProgramCache(NewMemoryProgramCache())),
		Logger:  noopLogger{},
	}
}

// Resolve accepts a *Config, a *MultiConfig, or a raw JSON-shaped
// map[string]any (a map with a "_default" key resolves as a multi-config).
// The inputs are never mutated.
func (r *Resolver) Resolve(ctx context.Context, raw any) (*Resolution, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch value := raw.(type) {
	case nil:
		return r.resolveSingle(ctx, &Config{})
	case *Config:
		if value == nil {
			return r.resolveSingle(ctx, &Config{})
		}
		return r.resolveSingle(ctx, value)
	case Config:
		return r.resolveSingle(ctx, &value)
	case *MultiConfig:
		if value == nil {
			return r.resolveSingle(ctx, &Config{})
		}
		return r.resolveMulti(ctx, value)
	case MultiConfig:
		return r.resolveMulti(ctx, &value)
	case map[string]any:
		decoded, err := decodeRawConfig(value)
		if err != nil {
			return nil, err
		}
		if multi, ok := decoded.(*MultiConfig); ok {
			return r.resolveMulti(ctx, multi)
		}
		return r.resolveSingle(ctx, decoded.(*Config))
	default:
		return nil, fmt.Errorf("consent: unsupported config type %T", raw)
	}
}

func (r *Resolver) resolveSingle(_ context.Context, user *Config) (*Resolution, error) {
	res := &Resolution{}
	cfg := layering.Merge(*user, *DefaultConfig())
	r.finish(res, &cfg, nil)
	return res, nil
}

func (r *Resolver) resolveMulti(ctx context.Context, multi *MultiConfig) (*Resolution, error) {
	res := &Resolution{}

	base := multi.Default
	if base == nil {
		base = &Config{}
		r.diag(res, "multi-config has no _default entry, using library defaults", nil)
	}
	cfg := layering.Merge(*base, *DefaultConfig())

	res.Geo = r.locate(ctx, res, &cfg)
	r.finish(res, &cfg, multi)
	return res, nil
}

// locate invokes the configured geolocation hook at most once.
func (r *Resolver) locate(ctx context.Context, res *Resolution, cfg *Config) string {
	locate := cfg.GeoLocate
	if locate == nil {
		locate = r.GeoLocate
	}
	if locate == nil {
		r.diag(res, "no geoLocate hook configured, routing skipped", nil)
		return ""
	}
	geo, err := locate(ctx)
	if err != nil {
		r.diag(res, "geoLocate failed, routing skipped", map[string]any{"error": err.Error()})
		return ""
	}
	return geo
}

func (r *Resolver) finish(res *Resolution, cfg *Config, multi *MultiConfig) {
	if multi != nil {
		r.applyRoutes(res, cfg, multi)
	}

	model, valid := NormalizeModel(cfg.ConsentModel)
	if !valid && strings.TrimSpace(cfg.ConsentModel) != "" {
		r.diag(res, "invalid consent model, falling back to opt-in", map[string]any{"model": cfg.ConsentModel})
	}
	cfg.ConsentModel = model

	categories := MergeCategories(DefaultCategories(), cfg.Types)

	res.Locale = r.applyLocale(res, cfg, categories)

	res.Config = cfg
	res.Categories = categories
}

// applyRoutes overlays every matching route's named configuration onto cfg in
// router order; later matches win field by field. A route with a bad
// expression or an unknown config name is skipped with a diagnostic.
func (r *Resolver) applyRoutes(res *Resolution, cfg *Config, multi *MultiConfig) {
	if len(multi.Router) == 0 {
		r.diag(res, "no _router found in multi-config, defaulting to base config", nil)
		return
	}
	if res.Geo == "" {
		return
	}

	matcher := r.Matcher
	if matcher == nil {
		matcher = NewPatternMatcher()
	}

	matchCtx := MatchContext{Geo: res.Geo}
	for _, route := range multi.Router {
		if route.GeoMatch == "" {
			continue
		}
		matched, err := matcher.Match(matchCtx, route.GeoMatch)
		if err != nil {
			r.diag(res, "route expression failed, route skipped", map[string]any{
				"expression": route.GeoMatch,
				"error":      err.Error(),
			})
			continue
		}
		if !matched {
			continue
		}
		override, ok := multi.Configs[route.Config]
		if !ok || override == nil {
			r.diag(res, "route matched but config not found, route skipped", map[string]any{
				"config": route.Config,
			})
			continue
		}
		*cfg = layering.Merge(*override, *cfg)
		res.Routed = append(res.Routed, route.Config)
	}
}

// applyLocale resolves the effective locale (explicit setting first, document
// language second) and overlays that locale's content, services, and types.
// A missing l10n entry leaves the configuration untouched.
func (r *Resolver) applyLocale(res *Resolution, cfg *Config, categories map[string]*Category) string {
	if len(cfg.L10n) == 0 {
		return ""
	}

	locale := cfg.Locale
	if locale == "" && r.Env != nil {
		locale = r.Env.DocumentLang()
	}
	if locale == "" {
		r.diag(res, "no locale set or detected", nil)
		return ""
	}
	locale = strings.ToLower(locale)

	l10n, ok := cfg.L10n[locale]
	if !ok || l10n == nil {
		r.diag(res, "no l10n entry for locale", map[string]any{"locale": locale})
		return locale
	}

	cfg.Content = layering.Merge(l10n.Content, cfg.Content)
	if len(l10n.Services) > 0 {
		cfg.Services = layering.Merge(l10n.Services, cfg.Services)
	}
	if len(l10n.Types) > 0 {
		for key, category := range MergeCategories(categories, l10n.Types) {
			categories[key] = category
		}
	}
	return locale
}

func (r *Resolver) diag(res *Resolution, msg string, fields map[string]any) {
	res.Diagnostics = append(res.Diagnostics, fmt.Errorf("consent: %s", msg))
	logWarn(r.Logger, msg, fields)
}

var configDecoder = hydrate.NewDecoder[Config]()

// decodeRawConfig turns a JSON-shaped map into either a *Config or a
// *MultiConfig. A "_default" key marks the multi-config form; its remaining
// top-level keys (minus "_router") are the named route configurations.
func decodeRawConfig(payload map[string]any) (any, error) {
	if _, ok := payload["_default"]; !ok {
		cfg, err := configDecoder.Decode(hydrate.Context{Source: "config"}, payload)
		if err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	multi := &MultiConfig{Configs: map[string]*Config{}}

	if section, ok := payload["_default"].(map[string]any); ok {
		cfg, err := configDecoder.Decode(hydrate.Context{Source: "_default"}, section)
		if err != nil {
			return nil, err
		}
		multi.Default = &cfg
	}

	if rawRouter, ok := payload["_router"].([]any); ok {
		for _, entry := range rawRouter {
			route, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			geoMatch, _ := route["geoMatch"].(string)
			name, _ := route["config"].(string)
			multi.Router = append(multi.Router, Route{GeoMatch: geoMatch, Config: name})
		}
	}

	for key, value := range payload {
		if key == "_default" || key == "_router" {
			continue
		}
		section, ok := value.(map[string]any)
		if !ok {
			continue
		}
		cfg, err := configDecoder.Decode(hydrate.Context{Source: key}, section)
		if err != nil {
			return nil, err
		}
		multi.Configs[key] = &cfg
	}

	return multi, nil
}
