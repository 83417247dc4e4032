package fetch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Anchor is a link scraped from an HTML page.
type Anchor struct {
	Text string
	Href string
}

// ExtractAnchors returns the text and href of every anchor matched by selector.
// Anchors without an href are skipped.
func ExtractAnchors(htmlContent string, selector string) ([]Anchor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	anchors := make([]Anchor, 0)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}
		anchors = append(anchors, Anchor{
			Text: strings.TrimSpace(s.Text()),
			Href: href,
		})
	})

	return anchors, nil
}

// IsStructuredMarkup reports whether text is an HTML document rather than
// plain or wiki text: it must open with a doctype or an element, tokenize
// cleanly to the end, and close at least one element.
func IsStructuredMarkup(text string) bool {
	z := html.NewTokenizer(strings.NewReader(text))

	started := false
	closed := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return started && closed > 0 && errors.Is(z.Err(), io.EOF)
		case html.TextToken:
			if !started && strings.TrimSpace(string(z.Text())) != "" {
				return false
			}
		case html.CommentToken:
			// Comments may precede the doctype.
		case html.DoctypeToken, html.StartTagToken:
			started = true
		case html.EndTagToken:
			if !started {
				return false
			}
			closed++
		case html.SelfClosingTagToken:
			started = true
			closed++
		}
	}
}
