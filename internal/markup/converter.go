// Package markup converts MoinMoin wiki source into Discord-flavoured
// Markdown and splits pages into titled sections.
package markup

import (
	"fmt"
	"net/url"
)

// Converter turns wiki source into chat Markdown. The zero value converts
// without resolving relative links and without a table budget. A Converter
// holds no mutable state and is safe for concurrent use.
type Converter struct {
	// BaseURL resolves relative link targets. Nil drops them to their labels.
	BaseURL *url.URL
	// TableBudget caps the total length of converted table rows. Zero or
	// negative means unlimited.
	TableBudget int
}

// NewConverter creates a converter resolving links against baseURL.
// An empty baseURL leaves relative links unresolved.
func NewConverter(baseURL string) (*Converter, error) {
	c := &Converter{}
	if baseURL == "" {
		return c, nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid base URL %q: must be absolute", baseURL)
	}
	c.BaseURL = u
	return c, nil
}

// Convert runs the conversion pipeline over raw. Code blocks are fenced
// first and every later pass skips them.
func (c *Converter) Convert(raw string) string {
	fenced, ranges := FenceCodeBlocks(raw)
	blocks := Partition(fenced, ranges)

	passes := []func(string) string{
		func(s string) string { return ConvertTables(s, c.TableBudget) },
		RemoveMacros,
		ReplaceEmoticons,
		func(s string) string { return RewriteLinks(s, c.BaseURL) },
		ReplaceEmphasis,
		UnescapeWikiWords,
	}

	for _, pass := range passes {
		for i := range blocks {
			if !blocks[i].Protected {
				blocks[i].Text = pass(blocks[i].Text)
			}
		}
	}

	return Join(blocks)
}
