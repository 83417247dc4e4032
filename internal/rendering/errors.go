// Package rendering renders converted wiki pages as standalone HTML previews.
package rendering

import (
	"errors"
	"fmt"
)

// ErrNoSections is returned when a page has nothing to preview.
var ErrNoSections = errors.New("page has no sections")

// PreviewError reports which part of a page preview failed. Section is empty
// when the failure is not tied to one section, such as executing the page
// template.
type PreviewError struct {
	Page    string
	Section string
	Err     error
}

func (e *PreviewError) Error() string {
	page := e.Page
	if page == "" {
		page = "(untitled)"
	}
	if e.Section != "" {
		return fmt.Sprintf("preview %s: section %q: %v", page, e.Section, e.Err)
	}
	return fmt.Sprintf("preview %s: %v", page, e.Err)
}

func (e *PreviewError) Unwrap() error {
	return e.Err
}
