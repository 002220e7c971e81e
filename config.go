package consent

import "context"

// GeoLocateFunc resolves the visitor's geolocation. It is invoked at most once
// per resolution; the returned string feeds route matching and record
// metadata. Implementations typically call an edge header or IP lookup.
type GeoLocateFunc func(ctx context.Context) (string, error)

// RecordCallback observes lifecycle transitions around saved records.
type RecordCallback func(record *Record)

// ActionText holds the button labels for one surface.
type ActionText struct {
	AcceptAll      string `json:"acceptAll,omitempty"`
	AcceptSelected string `json:"acceptSelected,omitempty"`
	DenyAll        string `json:"denyAll,omitempty"`
	SaveSettings   string `json:"saveSettings,omitempty"`
	ShowSettings   string `json:"showSettings,omitempty"`
}

// SurfaceContent is the localizable copy for a banner or modal surface.
type SurfaceContent struct {
	Heading     string     `json:"heading,omitempty"`
	Description string     `json:"description,omitempty"`
	ToggleAll   string     `json:"toggleAll,omitempty"`
	Actions     ActionText `json:"actions,omitempty"`
}

// Link points at a privacy document.
type Link struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Notice is a badge shown against categories the visitor cannot change.
type Notice struct {
	Badge       string `json:"badge,omitempty"`
	Description string `json:"description,omitempty"`
}

// Notices groups the built-in badges.
type Notices struct {
	Required Notice `json:"required,omitempty"`
	GPC      Notice `json:"gpc,omitempty"`
}

// Content is the full copy deck for the consent surfaces.
type Content struct {
	Banner  SurfaceContent   `json:"banner,omitempty"`
	Modal   SurfaceContent   `json:"modal,omitempty"`
	Links   map[string]*Link `json:"links,omitempty"`
	Notices Notices          `json:"notices,omitempty"`
}

// ServiceCookie documents one cookie a service sets.
type ServiceCookie struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// Service describes a third-party integration and the consent types it needs.
type Service struct {
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Cookies     []ServiceCookie `json:"cookies,omitempty"`
	Types       []string        `json:"types,omitempty"`
}

// GTM configures the Google Tag Manager integration.
type GTM struct {
	ContainerID   string `json:"containerId,omitempty"`
	LoadContainer *bool  `json:"loadContainer,omitempty"`
}

// Localization carries per-locale overrides for content, services, and types.
type Localization struct {
	Content  Content              `json:"content,omitempty"`
	Services map[string]*Service  `json:"services,omitempty"`
	Types    map[string]*Category `json:"types,omitempty"`
}

// Config is one complete consent-manager configuration. Layers of Config
// values are merged strongest-first; zero-valued fields read as unset so an
// empty override never erases lower layers. Pointer booleans distinguish an
// explicit false from absent.
type Config struct {
	ConsentModel     string                   `json:"consentModel,omitempty"`
	ConsentOn        []string                 `json:"consentOn,omitempty"`
	ConsentRequired  *bool                    `json:"consentRequired,omitempty"`
	Content          Content                  `json:"content,omitempty"`
	CookieDomain     string                   `json:"cookieDomain,omitempty"`
	CookieExpiryDays int                      `json:"cookieExpiryDays,omitempty"`
	GTM              GTM                      `json:"gtm,omitempty"`
	L10n             map[string]*Localization `json:"l10n,omitempty"`
	Locale           string                   `json:"locale,omitempty"`
	Services         map[string]*Service      `json:"services,omitempty"`
	StorageMethod    string                   `json:"storageMethod,omitempty"`
	StorageName      string                   `json:"storageName,omitempty"`
	Types            map[string]*Category     `json:"types,omitempty"`

	GeoLocate      GeoLocateFunc  `json:"-"`
	OnInit         RecordCallback `json:"-"`
	OnUpdateBefore RecordCallback `json:"-"`
	OnUpdateAfter  RecordCallback `json:"-"`
}

// Route sends visitors whose geolocation matches the expression to a named
// configuration in the surrounding multi-config.
type Route struct {
	GeoMatch string `json:"geoMatch"`
	Config   string `json:"config"`
}

// MultiConfig bundles a base configuration with geo-routed variants. Configs
// is keyed by the names routes reference.
type MultiConfig struct {
	Default *Config            `json:"_default"`
	Router  []Route            `json:"_router"`
	Configs map[string]*Config `json:"-"`
}

// ConsentRequiredOrDefault reads the pointer with its documented default.
func (c *Config) ConsentRequiredOrDefault() bool {
	if c == nil || c.ConsentRequired == nil {
		return false
	}
	return *c.ConsentRequired
}

// LoadContainerOrDefault reads the pointer with its documented default.
func (g GTM) LoadContainerOrDefault() bool {
	if g.LoadContainer == nil {
		return false
	}
	return *g.LoadContainer
}

// DefaultConfig returns the library defaults every resolution starts from.
func DefaultConfig() *Config {
	return &Config{
		ConsentModel:     ModelOptIn,
		CookieExpiryDays: 365,
		StorageMethod:    "hybrid",
		StorageName:      "simple_consent",
		Content: Content{
			Banner: SurfaceContent{
				Heading:     "Privacy Notice",
				Description: "This website uses cookies (or other browser storage) to deliver our services and/or analyze our website usage. This information is also shared with advertising partners through the use of tracking scripts/pixels.",
				Actions: ActionText{
					AcceptAll:    "Accept All",
					DenyAll:      "Deny All",
					ShowSettings: "Edit Preferences",
				},
			},
			Modal: SurfaceContent{
				Heading:     "Your Privacy Choices",
				Description: "This website uses services that utilize storage features in your browser (via cookies or other browser storage functionality) to collect information. You can choose to grant or deny certain types of data collection using the controls below.",
				ToggleAll:   "Enable/Disable All",
				Actions: ActionText{
					AcceptAll:      "Accept All",
					AcceptSelected: "Accept Selected",
					DenyAll:        "Deny All",
					SaveSettings:   "Save Preferences",
				},
			},
			Links: map[string]*Link{
				"privacyPolicy": {Text: "Privacy Policy", URL: "#/privacy-policy"},
				"cookiePolicy":  {Text: "Cookie Policy", URL: "#/cookie-policy"},
			},
			Notices: Notices{
				Required: Notice{Badge: "Always Enabled"},
				GPC: Notice{
					Badge:       "Disabled by GPC",
					Description: "Some services have been automatically disabled to respect your Global Privacy Control opt-out signal.",
				},
			},
		},
	}
}
