package markup

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultTableBudget keeps converted tables inside one chat message field
// with room for a truncation notice.
const DefaultTableBudget = 1024 - 25

var inlineMacroPattern = regexp.MustCompile(`<<.*?>>`)

// Parser prepares whole wiki pages for display: it strips page directives,
// converts the markup and splits the result into sections.
type Parser struct {
	Converter *Converter
}

// NewParser creates a parser whose links resolve against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	c, err := NewConverter(baseURL)
	if err != nil {
		return nil, err
	}
	c.TableBudget = DefaultTableBudget
	return &Parser{Converter: c}, nil
}

// CleanUp normalizes line endings to "\n", drops "#" directive lines and
// leading blank lines, trims trailing whitespace and removes macros. Lines
// inside code blocks are kept as they are.
func (p *Parser) CleanUp(document string) string {
	lines := strings.Split(strings.ReplaceAll(document, "\r", ""), "\n")

	out := make([]string, 0, len(lines))
	inCode := false
	for _, line := range lines {
		if inCode {
			out = append(out, line)
			inCode = !closesCodeBlock(line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if len(out) == 0 && line == "" {
			continue
		}

		out = append(out, inlineMacroPattern.ReplaceAllString(line, ""))
		inCode = opensCodeBlock(line)
	}

	return strings.Join(out, "\n")
}

// opensCodeBlock reports whether line leaves a code block open.
func opensCodeBlock(line string) bool {
	open := strings.LastIndex(line, codeBlockStart)
	return open >= 0 && !strings.Contains(line[open+len(codeBlockStart):], codeBlockEnd)
}

func closesCodeBlock(line string) bool {
	end := strings.Index(line, codeBlockEnd)
	return end >= 0 && !opensCodeBlock(line[end+len(codeBlockEnd):])
}

// Parse cleans up the document, optionally converts it and splits it into
// sections, including the categories section.
func (p *Parser) Parse(document string, convert bool) *Sections {
	document = p.CleanUp(document)
	if convert {
		document = p.converter().Convert(document)
	}
	return SplitIntoSections(document, true)
}

// ParseSummary returns the body of the document's first section, or "" if
// it has none.
func (p *Parser) ParseSummary(document string, convert bool) string {
	first, ok := SplitIntoSections(p.CleanUp(document), true).First()
	if !ok {
		return ""
	}
	if convert {
		return p.converter().Convert(first.Body)
	}
	return first.Body
}

func (p *Parser) converter() *Converter {
	if p.Converter == nil {
		return &Converter{}
	}
	return p.Converter
}
