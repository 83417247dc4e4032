// Package throttle keeps outbound wiki requests under the upstream site's surge protection limits.
//
// MoinMoin wikis ban clients that issue too many requests in a short window
// (see http://moinmo.in/HelpOnConfiguration/SurgeProtection). A Throttle counts
// requests inside a rolling window and blocks the caller for a cooldown once the
// limit is reached.
package throttle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/wikibot/internal/logger"
)

// WarningText is the phrase MoinMoin includes in pages served to throttled clients.
const WarningText = "surge protection"

// WarningScanLength is how many leading characters of a response are searched for WarningText.
const WarningScanLength = 1024

// Throttle is a rolling-window request gate. It is safe for concurrent use.
type Throttle struct {
	mu          sync.Mutex
	config      Config
	enabled     bool
	count       int
	lastRequest time.Time
	logger      logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Default is the process-wide throttle shared by every component that talks to the wiki.
var Default = New(DefaultConfig(), logger.NewNop())

// New creates a throttle with the given configuration.
func New(config Config, log logger.Logger) *Throttle {
	config = config.WithDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Throttle{
		config:  config,
		enabled: config.Enabled,
		logger:  log,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// SetLogger replaces the throttle's logger.
func (t *Throttle) SetLogger(log logger.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if log == nil {
		log = logger.NewNop()
	}
	t.logger = log
}

// SetEnabled turns throttling on or off without touching call sites.
func (t *Throttle) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Enabled reports whether throttling is active.
func (t *Throttle) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// RequestCount returns the number of requests seen in the current window.
func (t *Throttle) RequestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// LastRequest returns the time of the last counted request.
func (t *Throttle) LastRequest() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRequest
}

// Config returns the throttle configuration.
func (t *Throttle) Config() Config {
	return t.config
}

// CheckBeforeRequest must be called before every request to the wiki. When the
// window is full it blocks for the cooldown and resets the counter, returning
// true. The lock is held while waiting so concurrent callers queue behind it.
func (t *Throttle) CheckBeforeRequest(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return false, nil
	}

	elapsed := t.now().Sub(t.lastRequest)
	if t.count >= t.config.MaxRequests && elapsed <= t.config.Window {
		t.logger.Info("Request limit reached, waiting",
			logger.Int("requests", t.count),
			logger.Duration("window", t.config.Window),
			logger.Duration("elapsed", elapsed),
			logger.Duration("cooldown", t.config.Cooldown))
		if err := t.waitLocked(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	t.count++
	t.lastRequest = t.now()
	return false, nil
}

// CheckForWarning looks for the surge protection warning at the start of a
// response. If found while enabled, it forces the cooldown. The detection
// result is returned either way.
func (t *Throttle) CheckForWarning(ctx context.Context, pageSource string) bool {
	if !ContainsWarning(pageSource) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return true
	}

	t.logger.Info("Surge protection warning detected, waiting",
		logger.String("warning", WarningText),
		logger.Duration("cooldown", t.config.Cooldown))
	_ = t.waitLocked(ctx)
	return true
}

// Wait forces a cooldown regardless of the request count.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return nil
	}
	t.logger.Info("Explicit wait requested", logger.Duration("cooldown", t.config.Cooldown))
	return t.waitLocked(ctx)
}

// waitLocked sleeps for the cooldown and opens a new window. Callers hold t.mu.
func (t *Throttle) waitLocked(ctx context.Context) error {
	if err := t.sleep(ctx, t.config.Cooldown); err != nil {
		return err
	}
	t.count = 0
	t.lastRequest = t.now()
	return nil
}

// ContainsWarning reports whether the first WarningScanLength characters of
// text contain WarningText, ignoring case.
func ContainsWarning(text string) bool {
	runes := []rune(text)
	if len(runes) > WarningScanLength {
		runes = runes[:WarningScanLength]
	}
	return strings.Contains(strings.ToLower(string(runes)), WarningText)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
