package reply

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wikibot/internal/markup"
	"github.com/jonathan/wikibot/internal/wiki"
)

const initPage = "#pragma section-numbers off\n" +
	"= SDL_Init =\n" +
	"Initialize the library.\n" +
	"== Syntax ==\n" +
	"{{{#!highlight c\n" +
	"int SDL_Init(Uint32 flags);\n" +
	"}}}\n" +
	"== Remarks ==\n" +
	"Call this first.\n" +
	"----\n" +
	"CategoryAPI\n"

func newTestParser(t *testing.T) *markup.Parser {
	t.Helper()
	p, err := markup.NewParser("https://wiki.libsdl.org/")
	require.NoError(t, err)
	return p
}

func newTestItem(name, raw string) *wiki.Item {
	item := wiki.NewItem(name, "https://wiki.libsdl.org/"+name)
	item.UpdateText(raw)
	return item
}

func TestBuildItemMessage(t *testing.T) {
	msg := BuildItemMessage(newTestItem("SDL_Init", initPage), newTestParser(t))
	require.NotNil(t, msg)

	assert.Equal(t, "SDL_Init", msg.Title)
	assert.Equal(t, "https://wiki.libsdl.org/SDL_Init", msg.URL)
	assert.Equal(t, "Initialize the library.", msg.Description)

	require.Len(t, msg.Fields, 3)
	assert.Equal(t, "Syntax", msg.Fields[0].Name)
	assert.Contains(t, msg.Fields[0].Value, "```c")
	assert.Contains(t, msg.Fields[0].Value, "int SDL_Init(Uint32 flags);")
	assert.Equal(t, Field{Name: "Remarks", Value: "Call this first."}, msg.Fields[1])
	assert.Equal(t, Field{Name: "Categories", Value: "CategoryAPI"}, msg.Fields[2])
}

func TestBuildItemMessage_NoSections(t *testing.T) {
	p := newTestParser(t)
	assert.Nil(t, BuildItemMessage(nil, p))
	assert.Nil(t, BuildItemMessage(newTestItem("Empty", ""), p))
}

func TestBuildItemMessage_NoHeadings(t *testing.T) {
	msg := BuildItemMessage(newTestItem("SDL_Hint", "SDL_Hint\nA hint is a '''named''' setting.\n----\nCategoryAPI\n"), newTestParser(t))
	require.NotNil(t, msg)

	assert.Equal(t, "SDL_Hint", msg.Title)
	assert.Equal(t, "A hint is a **named** setting.", msg.Description)
	assert.Equal(t, []Field{{Name: "Categories", Value: "CategoryAPI"}}, msg.Fields)
}

func TestBuildItemMessage_LongCodeSection(t *testing.T) {
	raw := "= SDL_Init =\nSummary.\n== Example ==\n{{{\n" +
		strings.Repeat("x = 1;\n", 200) +
		"}}}\n"

	msg := BuildItemMessage(newTestItem("SDL_Init", raw), newTestParser(t))
	require.NotNil(t, msg)
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, codeTooLongNotice, msg.Fields[0].Value)
}

func TestBuildItemMessage_LongTextSection(t *testing.T) {
	raw := "= SDL_Init =\nSummary.\n== Remarks ==\n" + strings.Repeat("word ", 300) + "\n"

	msg := BuildItemMessage(newTestItem("SDL_Init", raw), newTestParser(t))
	require.NotNil(t, msg)
	require.Len(t, msg.Fields, 1)

	value := msg.Fields[0].Value
	assert.Equal(t, 1024, utf8.RuneCountInString(value))
	assert.True(t, strings.HasSuffix(value, DefaultSuffix))
}

func TestBuilder_ItemMessage_FieldLimits(t *testing.T) {
	b := NewBuilder(newTestParser(t))
	b.Limits.Fields = 1

	msg := b.ItemMessage(newTestItem("SDL_Init", initPage))
	require.NotNil(t, msg)
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "Syntax", msg.Fields[0].Name)
}

func TestBuilder_ItemMessage_TotalLimit(t *testing.T) {
	b := NewBuilder(newTestParser(t))
	b.Limits.Total = 60

	msg := b.ItemMessage(newTestItem("SDL_Init", initPage))
	require.NotNil(t, msg)
	assert.LessOrEqual(t, msg.Size(), 60)
	assert.Less(t, len(msg.Fields), 3)
	assert.Equal(t, "Initialize the library.", msg.Description)
}

func TestBuilder_NilParser(t *testing.T) {
	b := &Builder{Limits: DiscordLimits()}
	msg := b.ItemMessage(newTestItem("SDL_Init", "= SDL_Init =\nSummary.\n"))
	require.NotNil(t, msg)
	assert.Equal(t, "Summary.", msg.Description)
}

func TestBuildSearchMessage(t *testing.T) {
	items := []*wiki.Item{
		newTestItem("SDL_Init", initPage),
		newTestItem("SDL_Quit", ""),
	}

	msg := BuildSearchMessage("init", items, newTestParser(t))

	assert.Equal(t, "Searched for 'init'", msg.Title)
	assert.Equal(t, "_Found 2 items matching your query._", msg.Description)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, Field{
		Name:  "SDL_Init",
		Value: "Initialize the library.\n**[https://wiki.libsdl.org/SDL_Init](https://wiki.libsdl.org/SDL_Init)**",
	}, msg.Fields[0])
	assert.Equal(t, "**[https://wiki.libsdl.org/SDL_Quit](https://wiki.libsdl.org/SDL_Quit)**", msg.Fields[1].Value)
}

func TestBuildSearchMessage_NoResults(t *testing.T) {
	msg := BuildSearchMessage("a very long query that goes on", nil, newTestParser(t))

	assert.Equal(t, "Searched for 'a very long query...'", msg.Title)
	assert.Equal(t, "_No results found._", msg.Description)
	assert.Empty(t, msg.Fields)
}

func TestBuilder_SearchMessage_TooManyItems(t *testing.T) {
	b := NewBuilder(newTestParser(t))
	b.Limits.Fields = 2

	var items []*wiki.Item
	for i := range 3 {
		items = append(items, newTestItem(fmt.Sprintf("SDL_Item%d", i), ""))
	}

	msg := b.SearchMessage("item", items)
	require.Len(t, msg.Fields, 2)
	assert.Equal(t, "_Found 3 items matching your query._\n"+
		"_Discord only allows displaying a maximum of 2 items. Try narrowing your search terms._", msg.Description)
}

func TestBuilder_SearchMessage_LongSummary(t *testing.T) {
	raw := "= SDL_Init =\n" + strings.Repeat("long ", 400) + "\n"

	msg := BuildSearchMessage("init", []*wiki.Item{newTestItem("SDL_Init", raw)}, newTestParser(t))
	require.Len(t, msg.Fields, 1)

	value := msg.Fields[0].Value
	assert.LessOrEqual(t, utf8.RuneCountInString(value), 1024)
	assert.True(t, strings.HasSuffix(value, "(https://wiki.libsdl.org/SDL_Init)**"))
	assert.Contains(t, value, "...\n**[")
}
