// Package consent implements a headless consent-management engine: layered
// configuration resolution with geo routing, a category/type model with alias
// fan-out and Global Privacy Control handling, persistent consent records,
// and a notification surface hosts bind their UI to.
package consent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-consent/pkg/datalayer"
	"github.com/goliatone/go-consent/pkg/notify"
	"github.com/goliatone/go-consent/pkg/store"
)

// Surface names one piece of consent UI the engine tracks visibility intents
// for. The engine never renders; hosts subscribe to the show/close events and
// draw whatever they like.
type Surface string

const (
	SurfaceBanner         Surface = "banner"
	SurfaceModal          Surface = "modal"
	SurfaceSettingsButton Surface = "settingsButton"
)

var (
	// ErrUnknownSurface signals an operation naming a surface the engine does
	// not track. This is an integration bug, not a runtime condition.
	ErrUnknownSurface = errors.New("consent: unknown surface")
	// ErrNoCategories signals a save attempted before any categories were
	// resolved.
	ErrNoCategories = errors.New("consent: no categories resolved")
	// ErrNotInitialized signals a command issued before Init completed.
	ErrNotInitialized = errors.New("consent: manager not initialized")
	// ErrDestroyed signals a command issued after Destroy.
	ErrDestroyed = errors.New("consent: manager destroyed")
)

const defaultHideDelay = 150 * time.Millisecond

// Manager drives one visitor's consent session: it resolves configuration,
// loads or defaults the stored decision, answers visibility intents for the
// consent surfaces, and persists decisions with full metadata.
//
// All exported methods are safe for concurrent use. Notification hooks run
// inline and must not call back into the Manager.
type Manager struct {
	mu sync.Mutex

	cfg        *Config
	categories map[string]*Category
	record     *Record
	store      *store.Store[Record]
	hooks      notify.Hooks
	layer      datalayer.Sink
	env        Environment
	log        Logger
	resolver   *Resolver

	signals Signals
	geo     string
	locale  string
	domain  string

	visible       map[Surface]bool
	implicitArmed bool
	scrollTimer   *time.Timer
	hideTimer     *time.Timer
	hideDelay     time.Duration

	initialized bool
	destroyed   bool
	release     func()
}

// ManagerOption configures a Manager before Init.
type ManagerOption func(*Manager)

// WithStore replaces the default in-memory record store.
func WithStore(s *store.Store[Record]) ManagerOption {
	return func(m *Manager) { m.store = s }
}

// WithHook appends a notification hook.
func WithHook(hook notify.Hook) ManagerOption {
	return func(m *Manager) {
		if hook != nil {
			m.hooks = append(m.hooks, hook)
		}
	}
}

// WithHooks appends several notification hooks.
func WithHooks(hooks ...notify.Hook) ManagerOption {
	return func(m *Manager) {
		for _, hook := range hooks {
			if hook != nil {
				m.hooks = append(m.hooks, hook)
			}
		}
	}
}

// WithDataLayer wires the tag-manager bridge.
func WithDataLayer(sink datalayer.Sink) ManagerOption {
	return func(m *Manager) { m.layer = sink }
}

// WithEnvironment wires the host environment.
func WithEnvironment(env Environment) ManagerOption {
	return func(m *Manager) { m.env = env }
}

// WithLogger wires a diagnostics logger.
func WithLogger(log Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithResolver replaces the default configuration resolver.
func WithResolver(resolver *Resolver) ManagerOption {
	return func(m *Manager) {
		if resolver != nil {
			m.resolver = resolver
		}
	}
}

// WithRouteMatcher swaps the geo-route matching engine on the default
// resolver.
func WithRouteMatcher(matcher RouteMatcher) ManagerOption {
	return func(m *Manager) {
		if matcher != nil {
			m.resolver.Matcher = matcher
		}
	}
}

// WithGeoLocate supplies the geolocation hook when the configuration itself
// carries none, e.g. JSON-shaped config.
func WithGeoLocate(locate GeoLocateFunc) ManagerOption {
	return func(m *Manager) { m.resolver.GeoLocate = locate }
}

// WithHideDelay adjusts the pause between saving and collapsing the surfaces.
func WithHideDelay(delay time.Duration) ManagerOption {
	return func(m *Manager) {
		if delay >= 0 {
			m.hideDelay = delay
		}
	}
}

// NewManager constructs an uninitialized Manager. Call Init with the raw
// configuration before issuing commands.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		env:       StaticEnvironment{},
		log:       noopLogger{},
		resolver:  NewResolver(),
		visible:   map[Surface]bool{},
		hideDelay: defaultHideDelay,
		release:   func() {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Init resolves raw configuration, loads the stored decision or computes
// defaults, arms implicit consent triggers, and shows the mount surface. It
// accepts the same input shapes as Resolver.Resolve.
func (m *Manager) Init(ctx context.Context, raw any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.destroyed {
		return ErrDestroyed
	}

	m.resolver.Env = m.env
	if m.resolver.Logger == nil {
		m.resolver.Logger = m.log
	}

	res, err := m.resolver.Resolve(ctx, raw)
	if err != nil {
		return err
	}

	m.cfg = res.Config
	m.categories = res.Categories
	m.geo = res.Geo
	m.locale = res.Locale
	m.signals = m.env.Signals()

	m.domain = m.cfg.CookieDomain
	if m.domain == "" {
		m.domain = store.RootDomain(m.env.Hostname())
	}

	if m.store == nil {
		m.store = store.New(
			store.ParseMethod(m.cfg.StorageMethod),
			m.cfg.StorageName,
			store.WithDeviceBackend[Record](store.NewMemoryBackend()),
		)
	}

	m.loadSettings(ctx)
	m.armImplicit()
	m.showOnMount(ctx)

	m.initialized = true

	if m.cfg.OnInit != nil {
		m.cfg.OnInit(m.record.Clone())
	}
	m.emit(ctx, "init", m.recordDetail())

	return nil
}

// loadSettings restores the persisted record, or computes per-category
// defaults when nothing valid is stored. Either way a settings.load event and
// a "load" datalayer push fire so subscribers always observe the initial
// state.
func (m *Manager) loadSettings(ctx context.Context) {
	record, found, diag := m.store.Load(ctx)
	if diag != nil {
		logWarn(m.log, "stored consent unreadable, treating as absent", map[string]any{
			"error": diag.Error(),
		})
	}

	if found {
		m.record = &record
	} else {
		m.record = m.defaultRecord()
		logDebug(m.log, "no stored consent, defaults applied", map[string]any{
			"model": m.cfg.ConsentModel,
			"gpc":   m.signals.GPC,
		})
	}

	m.emit(ctx, "settings.load", m.recordDetail())
	m.pushDataLayer(ctx, "load")
}

// defaultRecord derives the no-decision state: opt-in denies optional
// categories, opt-out grants them, a GPC signal forces every optional
// category off regardless of model, required categories are always on.
func (m *Manager) defaultRecord() *Record {
	granted := m.cfg.ConsentModel == ModelOptOut
	if m.signals.GPC {
		granted = false
	}

	choices := make(map[string]bool, len(m.categories))
	for _, key := range sortedCategoryKeys(m.categories) {
		if m.categories[key].Required {
			choices[key] = true
			continue
		}
		choices[key] = granted
	}
	return &Record{Choices: choices}
}

func (m *Manager) armImplicit() {
	m.implicitArmed = len(m.cfg.ConsentOn) > 0 && !m.record.HasDecision()
}

// showOnMount picks the initial surface: a prior decision shows only the
// settings button; otherwise consentRequired escalates straight to the modal.
func (m *Manager) showOnMount(ctx context.Context) {
	if m.record.HasDecision() {
		m.show(ctx, SurfaceSettingsButton)
		return
	}
	if m.cfg.ConsentRequiredOrDefault() {
		m.show(ctx, SurfaceModal)
		return
	}
	m.show(ctx, SurfaceBanner)
}

// Show marks the surface visible, emitting show.before and show.after events.
// Showing the modal before any decision silently hides the banner so the two
// never stack.
func (m *Manager) Show(ctx context.Context, surface Surface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSurface(surface); err != nil {
		return err
	}
	m.show(ctx, surface)
	return nil
}

func (m *Manager) show(ctx context.Context, surface Surface) {
	m.emit(ctx, string(surface)+".show.before", m.surfaceDetail(surface))
	if surface == SurfaceModal && !m.record.HasDecision() {
		m.visible[SurfaceBanner] = false
	}
	m.visible[surface] = true
	m.emit(ctx, string(surface)+".show.after", m.surfaceDetail(surface))
}

// Hide closes the surface, emitting close.before and close.after events.
// When consent is required and the visitor has not decided yet the call is a
// guarded no-op. Closing the modal without a decision reopens the banner;
// closing the banner counts as an implicit accept when configured.
func (m *Manager) Hide(ctx context.Context, surface Surface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSurface(surface); err != nil {
		return err
	}

	if m.cfg.ConsentRequiredOrDefault() && !m.record.HasDecision() {
		logDebug(m.log, "hide suppressed, consent still required", map[string]any{
			"surface": string(surface),
		})
		return nil
	}

	m.emit(ctx, string(surface)+".close.before", m.surfaceDetail(surface))
	if surface == SurfaceModal && !m.record.HasDecision() {
		m.show(ctx, SurfaceBanner)
	}
	m.visible[surface] = false
	m.emit(ctx, string(surface)+".close.after", m.surfaceDetail(surface))

	if surface == SurfaceBanner {
		m.maybeImplicitAccept(ctx, "banner.close")
	}
	return nil
}

// Visible reports the current visibility intent for surface.
func (m *Manager) Visible(surface Surface) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible[surface]
}

// AcceptAll grants every optional category and saves.
func (m *Manager) AcceptAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReady(); err != nil {
		return err
	}
	m.save(ctx, m.allChoices(true), false)
	return nil
}

// DenyAll revokes every optional category and saves.
func (m *Manager) DenyAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReady(); err != nil {
		return err
	}
	m.save(ctx, m.allChoices(false), false)
	return nil
}

// SaveSelected persists the visitor's explicit per-category selection.
// Categories missing from edits are treated as denied; required categories
// stay granted no matter what the edits say.
func (m *Manager) SaveSelected(ctx context.Context, edits map[string]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReady(); err != nil {
		return err
	}

	choices := make(map[string]bool, len(m.categories))
	for _, key := range sortedCategoryKeys(m.categories) {
		choices[key] = edits[key]
	}
	m.save(ctx, choices, false)
	return nil
}

// allChoices assigns value to every optional category.
func (m *Manager) allChoices(value bool) map[string]bool {
	choices := make(map[string]bool, len(m.categories))
	for _, key := range sortedCategoryKeys(m.categories) {
		choices[key] = value
	}
	return choices
}

// save is the single write path shared by accept, deny, selected, and
// implicit saves. It normalizes the choices, fans mapTo aliases out, stamps
// metadata, persists, and notifies, then collapses the surfaces after a short
// delay so hosts can animate.
func (m *Manager) save(ctx context.Context, choices map[string]bool, implicit bool) {
	if m.cfg.OnUpdateBefore != nil {
		m.cfg.OnUpdateBefore(m.record.Clone())
	}

	record := &Record{
		Choices:  make(map[string]bool, len(choices)),
		Datetime: time.Now().UTC(),
		ID:       uuid.NewString(),
		Geo:      m.geo,
		GPC:      m.signals.GPC,
		Model:    m.cfg.ConsentModel + "/" + modeLabel(implicit),
		Version:  SchemaVersion,
	}

	type statusEvent struct {
		key     string
		granted bool
	}
	var events []statusEvent

	for _, key := range sortedCategoryKeys(m.categories) {
		category := m.categories[key]
		granted := choices[key]
		if category.Required {
			granted = true
		}
		if category.GPC && m.signals.GPC {
			granted = false
		}

		record.Choices[key] = granted
		for _, alias := range category.MapTo {
			record.Choices[alias] = granted
			events = append(events, statusEvent{key: alias, granted: granted})
		}
		events = append(events, statusEvent{key: key, granted: granted})
	}

	m.record = record

	if err := m.store.Save(ctx, *record, m.cfg.CookieExpiryDays, m.domain); err != nil {
		logError(m.log, "consent save failed", map[string]any{"error": err.Error()})
	}

	for _, event := range events {
		m.emit(ctx, event.key+"."+string(datalayer.FromBool(event.granted)), nil)
	}
	m.emit(ctx, "settings.update", m.recordDetail())
	m.pushDataLayer(ctx, "update")

	if m.cfg.OnUpdateAfter != nil {
		m.cfg.OnUpdateAfter(m.record.Clone())
	}

	m.implicitArmed = false
	m.show(ctx, SurfaceSettingsButton)

	if m.hideTimer != nil {
		m.hideTimer.Stop()
	}
	m.hideTimer = time.AfterFunc(m.hideDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.destroyed {
			return
		}
		m.visible[SurfaceModal] = false
		m.visible[SurfaceBanner] = false
	})
}

func modeLabel(implicit bool) string {
	if implicit {
		return "implicit"
	}
	return "explicit"
}

// Reset discards the stored decision and returns the session to its fresh
// state: defaults recomputed, implicit triggers re-armed, mount surface shown.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReady(); err != nil {
		return err
	}

	m.emit(ctx, "reset", nil)

	if err := m.store.Purge(ctx, m.domain); err != nil {
		logWarn(m.log, "consent purge failed", map[string]any{"error": err.Error()})
	}

	// A pending post-save collapse would tear down the surfaces the reset is
	// about to re-mount.
	if m.scrollTimer != nil {
		m.scrollTimer.Stop()
	}
	if m.hideTimer != nil {
		m.hideTimer.Stop()
	}

	m.record = nil
	m.visible = map[Surface]bool{}

	m.loadSettings(ctx)
	m.armImplicit()
	m.showOnMount(ctx)
	return nil
}

// Destroy tears the session down: the stored decision is purged, timers stop,
// and every subsequent command fails with ErrDestroyed.
func (m *Manager) Destroy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return ErrDestroyed
	}

	m.emit(ctx, "destroy", nil)

	if m.store != nil {
		if err := m.store.Purge(ctx, m.domain); err != nil {
			logWarn(m.log, "consent purge failed", map[string]any{"error": err.Error()})
		}
	}

	if m.scrollTimer != nil {
		m.scrollTimer.Stop()
	}
	if m.hideTimer != nil {
		m.hideTimer.Stop()
	}

	m.record = nil
	m.visible = map[Surface]bool{}
	m.destroyed = true
	m.release()
	return nil
}

// Config returns the effective configuration snapshot.
func (m *Manager) Config() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil
	}
	cfg := *m.cfg
	return &cfg
}

// Record returns a copy of the current consent record, or nil before Init.
func (m *Manager) Record() *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.Clone()
}

// HasDecision reports whether the visitor has made an explicit or implicit
// decision this session or a prior one.
func (m *Manager) HasDecision() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record.HasDecision()
}

// Signals returns the privacy signals captured at Init.
func (m *Manager) Signals() Signals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signals
}

// Geo returns the geolocation detected during configuration resolution.
func (m *Manager) Geo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geo
}

// Locale returns the locale the configuration resolved to, empty when no
// localization applied.
func (m *Manager) Locale() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locale
}

// Categories returns the resolved category table.
func (m *Manager) Categories() map[string]*Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Category, len(m.categories))
	for key, category := range m.categories {
		out[key] = cloneCategory(key, category)
	}
	return out
}

// ServicesByCategory groups the configured services under each consent type
// they declare.
func (m *Manager) ServicesByCategory() map[string][]*Service {
	m.mu.Lock()
	defer m.mu.Unlock()

	grouped := map[string][]*Service{}
	if m.cfg == nil {
		return grouped
	}
	for _, service := range m.cfg.Services {
		if service == nil {
			continue
		}
		for _, key := range service.Types {
			copied := *service
			grouped[key] = append(grouped[key], &copied)
		}
	}
	return grouped
}

func (m *Manager) checkReady() error {
	if m.destroyed {
		return ErrDestroyed
	}
	if !m.initialized {
		return ErrNotInitialized
	}
	if len(m.categories) == 0 {
		return ErrNoCategories
	}
	return nil
}

func (m *Manager) checkSurface(surface Surface) error {
	if m.destroyed {
		return ErrDestroyed
	}
	if !m.initialized {
		return ErrNotInitialized
	}
	switch surface {
	case SurfaceBanner, SurfaceModal, SurfaceSettingsButton:
		return nil
	default:
		return ErrUnknownSurface
	}
}

func (m *Manager) emit(ctx context.Context, name string, detail map[string]any) {
	if err := m.hooks.Notify(ctx, notify.Event{Name: name, Detail: detail}); err != nil {
		logWarn(m.log, "notification hook failed", map[string]any{
			"event": name,
			"error": err.Error(),
		})
	}
}

func (m *Manager) recordDetail() map[string]any {
	detail := map[string]any{}
	if m.record != nil {
		detail["record"] = m.record.Clone()
		if m.record.ID != "" {
			detail["_id"] = m.record.ID
		}
	}
	return detail
}

func (m *Manager) surfaceDetail(surface Surface) map[string]any {
	return map[string]any{"surface": string(surface)}
}

// pushDataLayer mirrors the record into the tag-manager bridge and announces
// the push as its own event.
func (m *Manager) pushDataLayer(ctx context.Context, event string) {
	if m.layer == nil {
		return
	}

	consent := make(map[string]datalayer.Status, len(m.record.Choices))
	for key, granted := range m.record.Choices {
		consent[key] = datalayer.FromBool(granted)
	}

	payload := datalayer.NewPayload(event, consent, datalayer.Meta{
		Model: m.cfg.ConsentModel,
		Geo:   m.geo,
		GPC:   m.signals.GPC,
	})
	if err := m.layer.Push(ctx, payload); err != nil {
		logWarn(m.log, "datalayer push failed", map[string]any{
			"event": event,
			"error": err.Error(),
		})
		return
	}
	m.emit(ctx, "datalayer.push", map[string]any{"event": payload.Event})
}
