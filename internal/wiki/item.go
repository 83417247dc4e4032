// Package wiki fetches pages from a MoinMoin wiki and keeps them in an
// expiring, persistable cache.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/text/cases"

	"github.com/jonathan/wikibot/internal/fetch"
	"github.com/jonathan/wikibot/internal/logger"
)

// CategoryMarker separates a page body from its trailing category links.
const CategoryMarker = "----"

// RawQuery asks MoinMoin for the page source instead of rendered HTML.
const RawQuery = "action=raw"

// DefaultItemExpiration is how long a fetched page is served from the cache.
const DefaultItemExpiration = 30 * 24 * time.Hour

var categoryPattern = regexp.MustCompile(`\[\[([^\]]*)\]\]`)

// errSurgeProtection marks a response that carried the wiki's throttling notice.
var errSurgeProtection = errors.New("surge protection notice received")

// Fetcher retrieves a URI. fetch.Client is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*fetch.Result, error)
}

// Throttler gates outbound requests. throttle.Throttle is the production implementation.
type Throttler interface {
	CheckBeforeRequest(ctx context.Context) (bool, error)
	CheckForWarning(ctx context.Context, text string) bool
}

// Item is a single wiki page: its last fetched source and the categories
// listed after the page's category marker.
type Item struct {
	Name       string    `json:"name"`
	URI        string    `json:"uri"`
	Categories []string  `json:"categories"`
	LastUpdate time.Time `json:"lastUpdate"`
	RawText    string    `json:"rawText"`

	// Live is set only on items returned straight from a network fetch.
	Live bool `json:"-"`
}

// NewItem creates an empty item that has never been fetched.
func NewItem(name, uri string) *Item {
	return &Item{
		Name:       name,
		URI:        uri,
		Categories: []string{},
	}
}

// Key returns the identity used for name under case-insensitive comparison.
func Key(name string) string {
	// A Caser carries state, so each call gets its own.
	return cases.Fold().String(name)
}

// Key returns the item's identity.
func (i *Item) Key() string {
	return Key(i.Name)
}

// Equal reports whether both items name the same page.
func (i *Item) Equal(other *Item) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.Key() == other.Key()
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Categories = slices.Clone(i.Categories)
	if c.Categories == nil {
		c.Categories = []string{}
	}
	return &c
}

// Expired reports whether the item is older than expiration at now.
func (i *Item) Expired(now time.Time, expiration time.Duration) bool {
	return now.Sub(i.LastUpdate) >= expiration
}

// HasCategory reports whether the page lists the given category.
func (i *Item) HasCategory(category string) bool {
	return slices.Contains(i.Categories, category)
}

// UpdateText replaces the page source and re-derives its categories.
func (i *Item) UpdateText(raw string) {
	i.UpdateTextAt(raw, time.Now())
}

// UpdateTextAt is UpdateText with an explicit update time.
func (i *Item) UpdateTextAt(raw string, at time.Time) {
	i.RawText = raw
	categories, err := ExtractCategories(raw)
	if err != nil {
		categories = []string{}
	}
	i.Categories = categories
	i.LastUpdate = at
}

// ExtractCategories returns every [[token]] after the last category marker,
// without duplicates and in order of first appearance.
func ExtractCategories(raw string) (categories []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			categories = []string{}
			err = fmt.Errorf("extract categories: %v", r)
		}
	}()

	categories = []string{}
	idx := strings.LastIndex(raw, CategoryMarker)
	if idx < 0 {
		return categories, nil
	}

	for _, m := range categoryPattern.FindAllStringSubmatch(raw[idx:], -1) {
		if !slices.Contains(categories, m[1]) {
			categories = append(categories, m[1])
		}
	}
	return categories, nil
}

// RawURI returns uri with the raw action query unless it already asks for it.
func RawURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse item uri %q: %w", uri, err)
	}
	if !strings.Contains(strings.ToLower(u.RawQuery), RawQuery) {
		u.RawQuery = RawQuery
	}
	return u.String(), nil
}

// RetryPolicy bounds how often a failed page download is retried.
// The n-th retry waits n*Step.
type RetryPolicy struct {
	MaxRetries int
	Step       time.Duration
}

// DefaultRetryPolicy returns the policy used against the public wiki.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Step:       40 * time.Second,
	}
}

// linearBackOff waits attempt*step before each retry.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Refresh downloads the item's raw source and updates it. Transient failures
// are retried per policy; when every attempt fails the last error is returned
// and the item is left unchanged.
func (i *Item) Refresh(ctx context.Context, fetcher Fetcher, gate Throttler, policy RetryPolicy, log logger.Logger) error {
	if log == nil {
		log = logger.NewNop()
	}

	uri, err := RawURI(i.URI)
	if err != nil {
		return err
	}

	log.Info("Refreshing wiki item", logger.String("name", i.Name), logger.String("uri", uri))

	var body string
	operation := func() error {
		if _, err := gate.CheckBeforeRequest(ctx); err != nil {
			return backoff.Permanent(err)
		}

		res, err := fetcher.Fetch(ctx, uri)
		if err != nil {
			var fetchErr *fetch.Error
			if ctx.Err() != nil || (errors.As(err, &fetchErr) && !fetchErr.Retryable) {
				return backoff.Permanent(err)
			}
			return err
		}

		if gate.CheckForWarning(ctx, res.Body) {
			return errSurgeProtection
		}

		body = res.Body
		return nil
	}

	var b backoff.BackOff = &linearBackOff{step: policy.Step}
	b = backoff.WithMaxRetries(b, uint64(max(policy.MaxRetries, 0)))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		log.Info("Wiki item download failed, surge protection likely encountered",
			logger.String("name", i.Name),
			logger.Duration("retry_in", wait),
			logger.Err(err))
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		log.Error("Failed to download wiki item", logger.String("uri", uri), logger.Err(err))
		return err
	}

	i.UpdateText(body)
	return nil
}
