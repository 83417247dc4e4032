package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/wikibot/internal/fetch"
	"github.com/jonathan/wikibot/internal/logger"
	"github.com/jonathan/wikibot/internal/throttle"
)

// DefaultLookupPage lists every API page of the wiki.
const DefaultLookupPage = "CategoryAPI"

// DefaultLookupSelector matches the page links in a MoinMoin category listing.
const DefaultLookupSelector = "#content .searchresults a"

// DefaultSaveInterval is how often a long refresh persists its progress.
const DefaultSaveInterval = time.Minute

// DefaultSearchConcurrency bounds parallel fetches in SearchForItems.
const DefaultSearchConcurrency = 4

// Options configures a Repository.
type Options struct {
	HostURL           string
	LookupPage        string
	LookupSelector    string
	ItemExpiration    time.Duration
	CacheExpiration   time.Duration
	SaveInterval      time.Duration
	Retry             RetryPolicy
	SearchConcurrency int

	// AutoUpdate runs a full cache refresh in the background on Start.
	AutoUpdate bool
	// UpdateLookups rebuilds the lookup index on Start.
	UpdateLookups bool
	// RefreshSchedule is an optional cron spec for periodic lookup and cache refreshes.
	RefreshSchedule string
}

// DefaultOptions returns options for the given wiki host.
func DefaultOptions(hostURL string) Options {
	return Options{
		HostURL:           hostURL,
		LookupPage:        DefaultLookupPage,
		LookupSelector:    DefaultLookupSelector,
		ItemExpiration:    DefaultItemExpiration,
		CacheExpiration:   DefaultCacheExpiration,
		SaveInterval:      DefaultSaveInterval,
		Retry:             DefaultRetryPolicy(),
		SearchConcurrency: DefaultSearchConcurrency,
		UpdateLookups:     true,
	}
}

// withDefaults fills zero values from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions(o.HostURL)
	if o.LookupPage == "" {
		o.LookupPage = d.LookupPage
	}
	if o.LookupSelector == "" {
		o.LookupSelector = d.LookupSelector
	}
	if o.ItemExpiration <= 0 {
		o.ItemExpiration = d.ItemExpiration
	}
	if o.CacheExpiration <= 0 {
		o.CacheExpiration = d.CacheExpiration
	}
	if o.SaveInterval <= 0 {
		o.SaveInterval = d.SaveInterval
	}
	if o.Retry == (RetryPolicy{}) {
		o.Retry = d.Retry
	}
	if o.SearchConcurrency <= 0 {
		o.SearchConcurrency = d.SearchConcurrency
	}
	return o
}

// Option injects a collaborator into a Repository.
type Option func(*Repository)

// WithFetcher sets the transport used for every wiki request.
func WithFetcher(f Fetcher) Option {
	return func(r *Repository) { r.fetcher = f }
}

// WithBrowserFetcher sets a transport used to render the lookup page when
// the plain HTTP response has no page links.
func WithBrowserFetcher(f Fetcher) Option {
	return func(r *Repository) { r.browser = f }
}

// WithThrottle sets the request gate. Defaults to throttle.Default.
func WithThrottle(t Throttler) Option {
	return func(r *Repository) { r.throttle = t }
}

// WithStore sets where the cache is loaded from and persisted to.
func WithStore(s Store) Option {
	return func(r *Repository) { r.store = s }
}

// WithLogger sets the repository logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Repository) { r.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository resolves page names to wiki items, fetching from the wiki when
// the cache has no fresh copy. It is safe for concurrent use.
type Repository struct {
	opts    Options
	host    *url.URL
	cache   *Cache
	lookups *LookupIndex

	fetcher  Fetcher
	browser  Fetcher
	throttle Throttler
	store    Store
	log      logger.Logger
	now      func() time.Time

	group  singleflight.Group
	saveMu sync.Mutex

	lifecycleMu sync.Mutex
	started     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	cron        *cron.Cron
}

// New creates a repository. Call Start to load the cache and begin
// background work, and Close to stop it.
func New(opts Options, options ...Option) (*Repository, error) {
	opts = opts.withDefaults()

	host, err := url.Parse(opts.HostURL)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL %q: %w", opts.HostURL, err)
	}
	if host.Scheme == "" || host.Host == "" {
		return nil, fmt.Errorf("invalid host URL %q: must be absolute", opts.HostURL)
	}
	if !strings.HasSuffix(host.Path, "/") {
		host.Path += "/"
	}

	r := &Repository{
		opts:    opts,
		host:    host,
		cache:   NewCache(),
		lookups: NewLookupIndex(),
		now:     time.Now,
	}
	for _, option := range options {
		option(r)
	}

	if r.fetcher == nil {
		r.fetcher = fetch.NewClient(nil)
	}
	if r.throttle == nil {
		r.throttle = throttle.Default
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	r.cache.now = r.now

	return r, nil
}

// Cache returns the underlying cache.
func (r *Repository) Cache() *Cache {
	return r.cache
}

// Lookups returns the lookup index.
func (r *Repository) Lookups() *LookupIndex {
	return r.lookups
}

// HostURL returns the wiki root every page name is resolved against.
func (r *Repository) HostURL() *url.URL {
	u := *r.host
	return &u
}

// NormalizeName applies the wiki's naming convention for API pages.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "sdl_", "SDL_")
}

// PageURL returns the URL of the named page, optionally asking for its raw source.
func (r *Repository) PageURL(name string, raw bool) string {
	u := r.host.ResolveReference(&url.URL{Path: NormalizeName(name)})
	if raw {
		u.RawQuery = RawQuery
	}
	return u.String()
}

// Search returns lookup entries matching query. See LookupIndex.Search.
func (r *Repository) Search(query string) []LookupEntry {
	return r.lookups.Search(query)
}

// GetItem returns the named page. A fresh cached copy is returned as-is;
// otherwise the name is resolved against the lookup index and the page is
// downloaded. The returned item is a copy owned by the caller.
//
// Errors are *fetch.Error for transport failures, *NotFoundError when the
// wiki has no such page, and ErrUnexpectedContent when the wiki returned
// HTML instead of page source.
//
// Callers fetching the same page share one download. Cancelling ctx returns
// ctx.Err() to that caller only; the download continues for the others.
func (r *Repository) GetItem(ctx context.Context, name string) (*Item, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &NotFoundError{Name: name}
	}
	return r.getItem(ctx, name, make(map[string]struct{}))
}

func (r *Repository) getItem(ctx context.Context, name string, visited map[string]struct{}) (*Item, error) {
	visited[name] = struct{}{}

	if item, ok := r.cache.TryGet(name); ok && !item.Expired(r.now(), r.opts.ItemExpiration) {
		c := item.Clone()
		c.Live = false
		return c, nil
	}

	// Maybe the casing is wrong, or the name is only part of a page name.
	if r.lookups.Len() > 0 {
		if match, ok := r.lookups.First(name); ok && match.Name != name {
			if _, seen := visited[match.Name]; !seen {
				r.log.Debug("Resolved wiki item name",
					logger.String("query", name),
					logger.String("name", match.Name))
				return r.getItem(ctx, match.Name, visited)
			}
		}
	}

	// The download is shared, so it must outlive any one caller's context.
	ch := r.group.DoChan(Key(name), func() (any, error) {
		return r.download(context.WithoutCancel(ctx), name)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Item).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Repository) download(ctx context.Context, name string) (*Item, error) {
	if _, err := r.throttle.CheckBeforeRequest(ctx); err != nil {
		return nil, err
	}

	uri := r.PageURL(name, true)
	res, err := r.fetcher.Fetch(ctx, uri)
	if err != nil {
		if res != nil && isNotFound(res.Body, name) {
			return nil, &NotFoundError{Name: name, Body: res.Body}
		}
		r.log.Warn("Failed to download wiki item", logger.String("uri", uri), logger.Err(err))
		return nil, err
	}

	body := res.Body
	if isNotFound(body, name) {
		return nil, &NotFoundError{Name: name, Body: body}
	}
	if fetch.IsStructuredMarkup(body) {
		r.log.Warn("Wiki returned HTML instead of page source", logger.String("uri", uri))
		return nil, ErrUnexpectedContent
	}

	item := NewItem(name, r.PageURL(name, false))
	item.UpdateTextAt(body, r.now())
	item.Live = true

	r.cache.AddOrUpdate(item.Clone())
	_ = r.persist(ctx)

	r.log.Info("Downloaded wiki item",
		logger.String("name", name),
		logger.Int("categories", len(item.Categories)))
	return item, nil
}

// isNotFound reports whether body starts with the wiki's missing page notice for name.
func isNotFound(body, name string) bool {
	phrase := fmt.Sprintf("Page %s not found", name)
	lead := []rune(body)
	if n := len([]rune(phrase)) + 1; len(lead) > n {
		lead = lead[:n]
	}
	return strings.Contains(strings.ToLower(string(lead)), strings.ToLower(phrase))
}

// SearchForItems fetches every page matching query. Pages that fail to
// download are left out. Results are unique and in match order.
func (r *Repository) SearchForItems(ctx context.Context, query string) []*Item {
	if r.lookups.Len() == 0 {
		return nil
	}
	matches := r.lookups.Search(query)
	if len(matches) == 0 {
		return nil
	}

	results := make([]*Item, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.SearchConcurrency)
	for i, match := range matches {
		g.Go(func() error {
			item, err := r.GetItem(gctx, match.Name)
			if err != nil {
				r.log.Debug("Excluding search match", logger.String("name", match.Name), logger.Err(err))
				return nil
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{}, len(results))
	items := make([]*Item, 0, len(results))
	for _, item := range results {
		if item == nil {
			continue
		}
		if _, dup := seen[item.Key()]; dup {
			continue
		}
		seen[item.Key()] = struct{}{}
		items = append(items, item)
	}
	return items
}

// Start loads the persisted cache, refreshes the lookup index and launches
// background refreshes as configured. Failures here are logged, not returned;
// the repository then works from whatever state it has.
func (r *Repository) Start(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.started {
		return errors.New("repository already started")
	}

	r.log.Info("Starting wiki repository", logger.String("host", r.host.String()))

	if r.store != nil {
		if err := r.load(ctx); err != nil {
			r.log.Warn("Could not load the cache, starting empty", logger.Err(err))
		} else {
			r.log.Info("Loaded the cache", logger.Int("items", r.cache.Count()))
		}
	}

	if r.opts.UpdateLookups {
		_ = r.RefreshLookupIndex(ctx)
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	if r.opts.AutoUpdate {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.RefreshCache(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error("Background cache refresh failed", logger.Err(err))
			}
		}()
	} else {
		r.log.Info("Automatic cache update on start-up disabled",
			logger.Time("last_update", r.cache.LastUpdate()))
	}

	if r.opts.RefreshSchedule != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(r.opts.RefreshSchedule, func() { r.scheduledRefresh(bgCtx) }); err != nil {
			cancel()
			r.wg.Wait()
			return fmt.Errorf("invalid refresh schedule %q: %w", r.opts.RefreshSchedule, err)
		}
		c.Start()
		r.cron = c
		r.log.Info("Scheduled cache refresh", logger.String("schedule", r.opts.RefreshSchedule))
	}

	r.started = true
	return nil
}

func (r *Repository) scheduledRefresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := r.RefreshLookupIndex(ctx); err != nil {
		return
	}
	if err := r.RefreshCache(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Error("Scheduled cache refresh failed", logger.Err(err))
	}
}

// Close stops background work and persists the cache.
func (r *Repository) Close(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if !r.started {
		return r.persist(ctx)
	}
	r.started = false

	r.cancel()
	if r.cron != nil {
		stopped := r.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		r.cron = nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("Stopping wiki repository", logger.Int("items", r.cache.Count()))
	return r.persist(ctx)
}
