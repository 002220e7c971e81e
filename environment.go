package consent

// Signals carries the privacy signals the host observed for the current
// visitor. GPC is the Global Privacy Control header or navigator flag, DNT the
// legacy Do Not Track flag.
type Signals struct {
	GPC bool
	DNT bool
}

// Environment exposes the host context the engine needs: the page hostname for
// cookie domain scoping, the document language for locale fallback, and the
// visitor's privacy signals.
type Environment interface {
	Hostname() string
	DocumentLang() string
	Signals() Signals
}

// StaticEnvironment is a fixed-value Environment for tests and server-side
// embedding where the host facts are known up front.
type StaticEnvironment struct {
	Host    string
	Lang    string
	Privacy Signals
}

// Hostname implements Environment.
func (e StaticEnvironment) Hostname() string { return e.Host }

// DocumentLang implements Environment.
func (e StaticEnvironment) DocumentLang() string { return e.Lang }

// Signals implements Environment.
func (e StaticEnvironment) Signals() Signals { return e.Privacy }
