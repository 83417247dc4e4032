package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in a headless Chrome. It is only worth using
// for HTML pages whose content is produced by JavaScript or hidden behind a
// browser check; wiki raw text must go through Client.
type BrowserFetcher struct {
	Timeout time.Duration
	// WaitSelector is waited for before the HTML is captured. Defaults to "body".
	WaitSelector string
}

// NewBrowserFetcher creates a browser fetcher with the given timeout.
func NewBrowserFetcher(timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BrowserFetcher{Timeout: timeout, WaitSelector: "body"}
}

// Fetch renders uri and returns the resulting document HTML.
// Requires Chrome/Chromium to be installed on the system.
func (b *BrowserFetcher) Fetch(ctx context.Context, uri string) (*Result, error) {
	html, err := WithBrowser(ctx, uri, b.Timeout, b.WaitSelector)
	if err != nil {
		return nil, &Error{URL: uri, Message: "browser rendering failed", Cause: err}
	}
	return &Result{
		URL:         uri,
		Body:        html,
		ContentType: "text/html",
		StatusCode:  200,
	}, nil
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, waitSelector string) (string, error) {
	if waitSelector == "" {
		waitSelector = "body"
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	return html, nil
}
