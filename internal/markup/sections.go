package markup

import (
	"strings"
)

// CategoryMarker separates a page body from its trailing category links.
const CategoryMarker = "----"

// CategoriesTitle is the section title given to a page's category links.
const CategoriesTitle = "Categories"

// Section is a titled part of a page.
type Section struct {
	Title string
	Body  string
}

// Sections is an ordered set of page sections with unique titles.
type Sections struct {
	list  []Section
	index map[string]int
}

func newSections() *Sections {
	return &Sections{index: make(map[string]int)}
}

// add appends a section, or appends body to an existing section of the same title.
func (s *Sections) add(title, body, lineEnding string) {
	if i, ok := s.index[title]; ok {
		if s.list[i].Body == "" {
			s.list[i].Body = body
		} else if body != "" {
			s.list[i].Body += lineEnding + lineEnding + body
		}
		return
	}
	s.index[title] = len(s.list)
	s.list = append(s.list, Section{Title: title, Body: body})
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	return len(s.list)
}

// All returns the sections in page order.
func (s *Sections) All() []Section {
	out := make([]Section, len(s.list))
	copy(out, s.list)
	return out
}

// Titles returns the section titles in page order.
func (s *Sections) Titles() []string {
	titles := make([]string, len(s.list))
	for i, sec := range s.list {
		titles[i] = sec.Title
	}
	return titles
}

// Get returns the body of the section with the given title.
func (s *Sections) Get(title string) (string, bool) {
	i, ok := s.index[title]
	if !ok {
		return "", false
	}
	return s.list[i].Body, true
}

// First returns the first section, normally the page title and summary.
func (s *Sections) First() (Section, bool) {
	if len(s.list) == 0 {
		return Section{}, false
	}
	return s.list[0], true
}

// SplitIntoSections splits a page at its headings. Everything after the last
// category marker is left out of the sections; with includeCategories it is
// added as a final "Categories" section. Text before the first heading
// becomes the first section, titled by its first line. Repeated headings are
// merged into one section.
func SplitIntoSections(text string, includeCategories bool) *Sections {
	lineEnding := LineEnding(text)
	sections := newSections()

	body := text
	if idx := strings.LastIndex(body, CategoryMarker); idx >= 0 {
		body = body[:idx]
	}

	for _, part := range splitAtHeadings(strings.TrimSpace(body)) {
		part = strings.TrimLeft(part, " \t\r\n")
		if part == "" {
			continue
		}

		heading, content, _ := strings.Cut(part, "\n")
		title := strings.TrimSpace(heading)
		if strings.HasPrefix(part, "=") {
			title = strings.TrimSpace(strings.ReplaceAll(heading, "=", ""))
		}
		sections.add(title, strings.TrimSpace(content), lineEnding)
	}

	if includeCategories {
		if categories := CategorySection(text); categories != "" {
			sections.add(CategoriesTitle, categories, lineEnding)
		}
	}

	return sections
}

// splitAtHeadings cuts text before every newline that is followed by "=".
func splitAtHeadings(text string) []string {
	var parts []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '\n' && text[i+1] == '=' {
			parts = append(parts, text[start:i])
			start = i
		}
	}
	return append(parts, text[start:])
}

// CategorySection returns the trimmed text after the last category marker,
// or "" if there is none.
func CategorySection(text string) string {
	idx := strings.LastIndex(text, CategoryMarker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+len(CategoryMarker):])
}
