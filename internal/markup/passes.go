package markup

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const tableSeparator = "||"

var (
	macroPattern = regexp.MustCompile(`<<[^>]*>>`)
	linkPattern  = regexp.MustCompile(`\[\[([^\]]*)\]\]`)
)

// emoticonTable is applied in order, each entry over the output of the previous.
var emoticonTable = [][2]string{
	{"X -(", ":angry:"},
	{":(", ":frowning:"},
	{";)", ":wink:"},
	{":-?", ":stuck_out_tongue:"},
	{":-(", ":frowning:"},
	{";-)", ":wink:"},
	{"{X}", ":error:"},
	{"{1}", ":one:"},
	{"{2}", ":two:"},
	{"{3}", ":three:"},
	{"{i}", ":information_source:"},
	{"{OK}", ":thumbsup:"},
	{"(!)", ":bulb:"},
	{"{o}", ":star:"},
	{"<!>", ":bangbang:"},
	{`/!\`, ":warning:"},
}

// ConvertTables rewrites table rows (lines starting with "||") as one
// formatted line each. The last column is the description; the column
// before it is the name and any earlier columns are joined as the type.
//
// If budget is positive, rows are emitted only while the running length of
// emitted rows stays within it; rows past the budget become empty lines.
func ConvertTables(text string, budget int) string {
	if !strings.Contains(text, tableSeparator) {
		return text
	}

	lineEnding := LineEnding(text)
	lines := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")

	used := 0
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), tableSeparator) {
			continue
		}
		row := convertTableRow(line)
		used += utf8.RuneCountInString(row)
		if budget > 0 && used > budget {
			row = ""
		}
		lines[i] = row
	}

	return strings.Join(lines, lineEnding)
}

func convertTableRow(line string) string {
	var columns []string
	for _, col := range strings.Split(strings.TrimSpace(line), tableSeparator) {
		if col != "" {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return ""
	}

	desc := columns[len(columns)-1]
	params := columns[:len(columns)-1]
	if len(params) == 0 {
		return "*" + desc + "*"
	}

	cleaned := make([]string, len(params))
	for i, p := range params {
		p = strings.ReplaceAll(p, "'''", "")
		// Keep C pointer stars attached to the type.
		p = strings.ReplaceAll(p, " **", `\*\*`)
		p = strings.ReplaceAll(p, " *", `\*`)
		cleaned[i] = p
	}

	name := cleaned[len(cleaned)-1]
	typ := strings.Join(cleaned[:len(cleaned)-1], " ")

	switch {
	case typ != "" && name != "":
		return "**` " + typ + " `***` " + name + " `* - " + desc
	case name != "":
		return "**`" + name + "`** - " + desc
	default:
		return "*" + desc + "*"
	}
}

// RemoveMacros deletes processing instructions such as <<TableOfContents()>>.
func RemoveMacros(text string) string {
	return macroPattern.ReplaceAllString(text, "")
}

// ReplaceEmoticons converts wiki smileys to chat emoji shortcodes.
func ReplaceEmoticons(text string) string {
	for _, e := range emoticonTable {
		text = strings.ReplaceAll(text, e[0], e[1])
	}
	return text
}

// RewriteLinks converts [[target]] and [[target|label]] to Markdown links.
// Absolute targets are kept as written; relative targets are resolved
// against base. Without base, relative links collapse to their label. Dots
// directly before a link are dropped since chat clients do not render the
// wiki's ". item" list syntax.
func RewriteLinks(text string, base *url.URL) string {
	matches := linkPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	pos := 0
	for _, m := range matches {
		sb.WriteString(strings.TrimRight(text[pos:m[0]], "."))
		sb.WriteString(linkReplacement(text[m[2]:m[3]], base))
		pos = m[1]
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

func linkReplacement(inner string, base *url.URL) string {
	target, label, found := strings.Cut(inner, "|")
	if !found {
		label = target
	}

	ref, err := url.Parse(target)
	if err != nil {
		return label
	}
	if ref.IsAbs() {
		return "[" + label + "](" + target + ")"
	}
	if base == nil {
		return label
	}
	return "[" + label + "](" + base.ResolveReference(ref).String() + ")"
}

// ReplaceEmphasis converts '''bold''' and ''italic'' markup.
func ReplaceEmphasis(text string) string {
	text = strings.ReplaceAll(text, "'''", "**")
	return strings.ReplaceAll(text, "''", "_")
}

// UnescapeWikiWords drops the "!" the wiki uses to stop CamelCase linking
// after an underscore, as in SDL_!CreateWindow.
func UnescapeWikiWords(text string) string {
	return strings.ReplaceAll(text, "_!", "_")
}
