package reply

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/wikibot/internal/markup"
	"github.com/jonathan/wikibot/internal/wiki"
)

const (
	codeTooLongNotice = "This section contains code and is too long for Discord to display."
	searchTitleLength = 20

	// emptyFieldValue stands in for blank section bodies, which embeds reject.
	emptyFieldValue = "\u200b"
)

// Message is a chat embed.
type Message struct {
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Field is one named embed field.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Size returns the number of characters counted against the total limit.
func (m *Message) Size() int {
	n := utf8.RuneCountInString(m.Title) + utf8.RuneCountInString(m.Description)
	for _, f := range m.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return n
}

// Builder turns items into messages.
type Builder struct {
	Parser *markup.Parser
	Limits Limits
}

// NewBuilder creates a builder with Discord's limits.
func NewBuilder(parser *markup.Parser) *Builder {
	return &Builder{Parser: parser, Limits: DiscordLimits()}
}

// BuildItemMessage renders an item's page. The first section becomes the
// title and description and every further section becomes a field. It
// returns nil when the page has no sections.
func BuildItemMessage(item *wiki.Item, parser *markup.Parser) *Message {
	return NewBuilder(parser).ItemMessage(item)
}

// BuildSearchMessage renders search results with a summary and link per item.
func BuildSearchMessage(query string, items []*wiki.Item, parser *markup.Parser) *Message {
	return NewBuilder(parser).SearchMessage(query, items)
}

// ItemMessage is BuildItemMessage with the builder's limits.
func (b *Builder) ItemMessage(item *wiki.Item) *Message {
	if item == nil {
		return nil
	}

	sections := b.parser().Parse(item.RawText, true).All()
	if len(sections) == 0 {
		return nil
	}

	msg := &Message{
		Title:       LimitLength(sections[0].Title, b.Limits.Title, DefaultSuffix),
		URL:         item.URI,
		Description: LimitLength(sections[0].Body, b.Limits.Description, DefaultSuffix),
	}

	for _, s := range sections[1:] {
		if len(msg.Fields) >= b.Limits.Fields {
			break
		}

		value := LimitLength(s.Body, b.Limits.FieldValue, DefaultSuffix)
		if utf8.RuneCountInString(s.Body) > b.Limits.FieldValue && strings.Contains(s.Body, "```") {
			value = codeTooLongNotice
		}
		if strings.TrimSpace(value) == "" {
			value = emptyFieldValue
		}

		msg.Fields = append(msg.Fields, Field{
			Name:  LimitLength(s.Title, b.Limits.FieldName, DefaultSuffix),
			Value: value,
		})
	}

	for len(msg.Fields) > 0 && msg.Size() > b.Limits.Total {
		msg.Fields = msg.Fields[:len(msg.Fields)-1]
	}
	return msg
}

// SearchMessage is BuildSearchMessage with the builder's limits.
func (b *Builder) SearchMessage(query string, items []*wiki.Item) *Message {
	msg := &Message{
		Title: fmt.Sprintf("Searched for '%s'", LimitLength(query, searchTitleLength, DefaultSuffix)),
	}

	truncated := false
	for _, item := range items {
		if len(msg.Fields) >= b.Limits.Fields {
			truncated = true
			break
		}
		msg.Fields = append(msg.Fields, Field{
			Name:  LimitLength(item.Name, b.Limits.FieldName, DefaultSuffix),
			Value: b.searchFieldValue(item),
		})
	}

	if len(items) == 0 {
		msg.Description = "_No results found._"
	} else {
		msg.Description = fmt.Sprintf("_Found %d items matching your query._", len(items))
	}
	if truncated {
		msg.Description += fmt.Sprintf("\n_Discord only allows displaying a maximum of %d items. Try narrowing your search terms._", b.Limits.Fields)
	}
	return msg
}

func (b *Builder) searchFieldValue(item *wiki.Item) string {
	link := fmt.Sprintf("**[%s](%s)**", item.URI, item.URI)
	linkLen := utf8.RuneCountInString(link)
	if linkLen >= b.Limits.FieldValue {
		return LimitLength(link, b.Limits.FieldValue, DefaultSuffix)
	}

	summary := strings.TrimSpace(b.parser().ParseSummary(item.RawText, true))
	if summary == "" {
		return link
	}

	summary = LimitLength(summary, b.Limits.FieldValue-(linkLen+1), DefaultSuffix)
	return summary + "\n" + link
}

func (b *Builder) parser() *markup.Parser {
	if b.Parser == nil {
		return &markup.Parser{}
	}
	return b.Parser
}
