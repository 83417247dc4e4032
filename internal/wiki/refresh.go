package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/wikibot/internal/fetch"
	"github.com/jonathan/wikibot/internal/logger"
)

// RefreshLookupIndex rebuilds the lookup index from the wiki's category
// listing. On failure the index is left empty and the error is returned.
func (r *Repository) RefreshLookupIndex(ctx context.Context) error {
	r.log.Info("Updating lookup index")
	r.lookups.Clear()

	if _, err := r.throttle.CheckBeforeRequest(ctx); err != nil {
		return err
	}

	pageURL := r.host.ResolveReference(&url.URL{Path: r.opts.LookupPage}).String()
	res, err := r.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		r.log.Error("Failed to download the lookup page", logger.String("uri", pageURL), logger.Err(err))
		return fmt.Errorf("fetch lookup page: %w", err)
	}

	anchors, err := fetch.ExtractAnchors(res.Body, r.opts.LookupSelector)
	if err != nil {
		r.log.Error("Failed to parse the lookup page", logger.String("uri", pageURL), logger.Err(err))
		return fmt.Errorf("parse lookup page: %w", err)
	}

	if len(anchors) == 0 && r.browser != nil {
		r.log.Info("Lookup page has no links, rendering it in a browser", logger.String("uri", pageURL))
		if rendered, err := r.browser.Fetch(ctx, pageURL); err != nil {
			r.log.Warn("Browser rendering failed", logger.Err(err))
		} else if anchors, err = fetch.ExtractAnchors(rendered.Body, r.opts.LookupSelector); err != nil {
			r.log.Warn("Failed to parse the rendered lookup page", logger.Err(err))
		}
	}

	r.log.Debug("Found lookup page links", logger.Int("count", len(anchors)))
	if len(anchors) == 0 {
		r.log.Warn("There weren't any items on the lookup page to fill the lookup index")
		return nil
	}

	entries := make([]LookupEntry, 0, len(anchors))
	for _, a := range anchors {
		link := a.Href
		if i := strings.IndexByte(link, '?'); i >= 0 {
			link = link[:i]
		}
		ref, err := url.Parse(link)
		if err != nil || a.Text == "" {
			r.log.Warn("Skipping lookup entry with an invalid URI",
				logger.String("name", a.Text),
				logger.String("href", a.Href))
			continue
		}
		entries = append(entries, LookupEntry{
			Name: a.Text,
			URI:  r.host.ResolveReference(ref).String(),
		})
	}

	r.lookups.Replace(entries)
	r.log.Info("Updated lookup index", logger.Int("entries", r.lookups.Len()))
	return nil
}

// RefreshCache re-downloads every indexed page whose copy has expired. It
// does nothing unless the cache as a whole has expired. Pages that fail to
// download are logged and skipped. Progress is persisted every SaveInterval
// and once at the end.
func (r *Repository) RefreshCache(ctx context.Context) error {
	now := r.now()
	if !r.cache.Expired(now, r.opts.CacheExpiration) {
		r.log.Debug("Cache has not expired, skipping refresh",
			logger.Time("last_update", r.cache.LastUpdate()))
		return nil
	}

	log := r.log.With(logger.String("run_id", uuid.NewString()))
	log.Info("Updating the cache since it has expired",
		logger.Duration("age", now.Sub(r.cache.LastUpdate())))

	entries := r.lookups.Entries()
	if len(entries) == 0 {
		log.Warn("The lookup index is empty so the cache cannot be updated")
		return r.persist(ctx)
	}

	updated, failed := 0, 0
	lastSave := r.now()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			log.Info("Cache refresh cancelled", logger.Int("updated", updated))
			_ = r.persist(context.WithoutCancel(ctx))
			return err
		}

		if r.now().Sub(lastSave) >= r.opts.SaveInterval {
			_ = r.persist(ctx)
			lastSave = r.now()
		}

		item, ok := r.cache.TryGet(entry.Name)
		if !ok {
			item = NewItem(entry.Name, entry.URI)
			r.cache.AddOrUpdate(item)
		}

		if !item.Expired(r.now(), r.opts.ItemExpiration) {
			log.Debug("Skipping item that has not expired", logger.String("name", entry.Name))
			continue
		}

		fresh := item.Clone()
		if err := fresh.Refresh(ctx, r.fetcher, r.throttle, r.opts.Retry, log); err != nil {
			failed++
			continue
		}
		fresh.LastUpdate = r.now()
		r.cache.AddOrUpdate(fresh)
		r.cache.Update()
		updated++
	}

	log.Info("Cache refresh finished",
		logger.Int("updated", updated),
		logger.Int("failed", failed),
		logger.Int("items", r.cache.Count()))
	return r.persist(ctx)
}
