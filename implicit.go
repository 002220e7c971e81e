package consent

import (
	"context"
	"time"
)

// Implicit consent triggers a configuration can opt into via consentOn.
const (
	TriggerScroll      = "scroll"
	TriggerClick       = "click"
	TriggerBannerClose = "banner.close"
)

// scrollThreshold is the fraction of the viewport height the visitor must
// scroll past before the scroll trigger fires.
const scrollThreshold = 0.05

// scrollDebounce holds the scroll trigger back until scrolling pauses.
const scrollDebounce = 100 * time.Millisecond

// HandleScroll feeds a host scroll observation into the implicit consent
// machinery. Scrolling less than 5% of the viewport is ignored; past that the
// trigger fires after a short debounce.
func (m *Manager) HandleScroll(ctx context.Context, scrollY, viewportHeight float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.implicitTriggerArmed(TriggerScroll) {
		return
	}
	if scrollY < viewportHeight*scrollThreshold {
		return
	}

	if m.scrollTimer != nil {
		m.scrollTimer.Stop()
	}
	m.scrollTimer = time.AfterFunc(scrollDebounce, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.destroyed {
			return
		}
		m.maybeImplicitAccept(context.Background(), TriggerScroll)
	})
}

// HandlePointerDown feeds a host pointer observation into the implicit
// consent machinery. Interactions inside the consent UI never count as
// implicit acceptance.
func (m *Manager) HandlePointerDown(ctx context.Context, insideConsentUI bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if insideConsentUI {
		return
	}
	m.maybeImplicitAccept(ctx, TriggerClick)
}

// implicitTriggerArmed reports whether trigger is configured and the session
// is still waiting on a decision. "close" is accepted as shorthand for the
// banner close trigger.
func (m *Manager) implicitTriggerArmed(trigger string) bool {
	if !m.implicitArmed || m.cfg == nil {
		return false
	}
	for _, configured := range m.cfg.ConsentOn {
		if configured == trigger {
			return true
		}
		if trigger == TriggerBannerClose && configured == "close" {
			return true
		}
	}
	return false
}

// maybeImplicitAccept grants everything and saves with the implicit mode
// label. Callers must hold the mutex.
func (m *Manager) maybeImplicitAccept(ctx context.Context, trigger string) {
	if !m.implicitTriggerArmed(trigger) {
		return
	}
	m.implicitArmed = false

	logDebug(m.log, "implicit consent trigger fired", map[string]any{
		"trigger": trigger,
	})
	m.save(ctx, m.allChoices(true), true)
}
