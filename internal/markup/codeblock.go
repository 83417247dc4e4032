package markup

import (
	"strings"
	"unicode"
)

const (
	codeBlockStart  = "{{{"
	codeBlockEnd    = "}}}"
	highlightPrefix = "#!highlight"
	fence           = "```"
)

// Range is a half-open byte range [Start, End) of a text.
type Range struct {
	Start int
	End   int
}

// Block is a run of text that is either protected from conversion or not.
type Block struct {
	Text      string
	Protected bool
}

// LineEnding returns "\r\n" if text contains a carriage return, otherwise "\n".
func LineEnding(text string) string {
	if strings.ContainsRune(text, '\r') {
		return "\r\n"
	}
	return "\n"
}

// FenceCodeBlocks rewrites every {{{ ... }}} region as a fenced block and
// returns the rewritten text with the ranges the fenced blocks occupy in it.
//
// A block closes at the first }}} after its opening; blocks do not nest. A
// leading "#!highlight <lang>" line becomes the fence language. Apart from
// that line the body is copied byte for byte, with a line ending added
// before the closing fence when a language line was written and the body
// does not already end with one. An opening without a closing is left alone.
func FenceCodeBlocks(text string) (string, []Range) {
	lineEnding := LineEnding(text)

	var sb strings.Builder
	sb.Grow(len(text))
	var ranges []Range

	pos := 0
	for {
		open := strings.Index(text[pos:], codeBlockStart)
		if open < 0 {
			break
		}
		open += pos

		bodyStart := open + len(codeBlockStart)
		closing := strings.Index(text[bodyStart:], codeBlockEnd)
		if closing < 0 {
			break
		}
		closing += bodyStart

		sb.WriteString(text[pos:open])
		start := sb.Len()
		writeFence(&sb, text[bodyStart:closing], lineEnding)
		ranges = append(ranges, Range{Start: start, End: sb.Len()})

		pos = closing + len(codeBlockEnd)
	}
	sb.WriteString(text[pos:])

	return sb.String(), ranges
}

func writeFence(sb *strings.Builder, body, lineEnding string) {
	language, rest, ok := splitHighlight(body)
	sb.WriteString(fence)
	if !ok {
		sb.WriteString(body)
		sb.WriteString(fence)
		return
	}

	sb.WriteString(language)
	sb.WriteString(lineEnding)
	sb.WriteString(rest)
	if rest != "" && !strings.HasSuffix(rest, "\n") {
		sb.WriteString(lineEnding)
	}
	sb.WriteString(fence)
}

// splitHighlight separates a "#!highlight <lang>" declaration line from the
// code that follows it.
func splitHighlight(body string) (language, rest string, ok bool) {
	if len(body) < len(highlightPrefix) || !strings.EqualFold(body[:len(highlightPrefix)], highlightPrefix) {
		return "", body, false
	}

	declaration := body
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		declaration, rest = body[:nl], body[nl+1:]
	}

	fields := strings.FieldsFunc(declaration[len(highlightPrefix):], unicode.IsSpace)
	if len(fields) > 0 {
		language = strings.ToLower(fields[0])
	}
	return language, rest, true
}

// Partition splits text into consecutive blocks, marking those covered by
// ranges as protected. Ranges must be sorted and must not overlap. The
// blocks joined together reproduce text exactly.
func Partition(text string, ranges []Range) []Block {
	if len(ranges) == 0 {
		return []Block{{Text: text}}
	}

	blocks := make([]Block, 0, 2*len(ranges)+1)
	pos := 0
	for _, r := range ranges {
		start, end := max(r.Start, pos), min(r.End, len(text))
		if start >= end {
			continue
		}
		if start > pos {
			blocks = append(blocks, Block{Text: text[pos:start]})
		}
		blocks = append(blocks, Block{Text: text[start:end], Protected: true})
		pos = end
	}
	if pos < len(text) {
		blocks = append(blocks, Block{Text: text[pos:]})
	}
	return blocks
}

// Join concatenates blocks back into text.
func Join(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Text)
	}
	return sb.String()
}
