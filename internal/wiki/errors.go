package wiki

import (
	"errors"
	"fmt"
)

// ErrItemNotFound is returned when a name is not present in the cache.
var ErrItemNotFound = errors.New("item not found")

// ErrUnexpectedContent is returned when the wiki answers a raw request with an HTML page.
var ErrUnexpectedContent = errors.New("unexpected content type")

// NotFoundError reports that the wiki has no page with the requested name.
// Error returns the wiki's own response so it can be shown as-is.
type NotFoundError struct {
	Name string
	Body string
}

func (e *NotFoundError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("page %q not found", e.Name)
	}
	return e.Body
}
