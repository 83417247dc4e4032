package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntoSections(t *testing.T) {
	text := "\n= Title Area =\nThis is the description of the page.\n\n" +
		"\n" +
		"== Function Parameters ==\n" +
		"||'''category'''||the category of the message||\n" +
		"||'''fmt'''||a printf() style message format string||\n\n" +
		"\n" +
		"----\n" +
		"[[CategoryAPI]], [[CategoryLog]]"

	sections := SplitIntoSections(text, true)

	assert.Equal(t, []Section{
		{Title: "Title Area", Body: "This is the description of the page."},
		{Title: "Function Parameters", Body: "||'''category'''||the category of the message||\n||'''fmt'''||a printf() style message format string||"},
		{Title: "Categories", Body: "[[CategoryAPI]], [[CategoryLog]]"},
	}, sections.All())
}

func TestSplitIntoSections_WithoutCategories(t *testing.T) {
	text := "= SDL_Init =\nbody\n----\n[[CategoryAPI]], [[CategoryVideo]]"

	sections := SplitIntoSections(text, false)
	assert.Equal(t, []string{"SDL_Init"}, sections.Titles())

	body, ok := sections.Get("SDL_Init")
	require.True(t, ok)
	assert.Equal(t, "body", body)
	assert.NotContains(t, body, "----")
}

func TestSplitIntoSections_Edges(t *testing.T) {
	t.Run("text before first heading kept as first section", func(t *testing.T) {
		sections := SplitIntoSections("Summary line one\nmore summary\n= Remarks =\nbody", false)
		assert.Equal(t, []Section{
			{Title: "Summary line one", Body: "more summary"},
			{Title: "Remarks", Body: "body"},
		}, sections.All())
	})

	t.Run("no headings", func(t *testing.T) {
		sections := SplitIntoSections("just text\n----\n[[CategoryAPI]]", true)
		assert.Equal(t, []Section{
			{Title: "just text"},
			{Title: "Categories", Body: "[[CategoryAPI]]"},
		}, sections.All())
	})

	t.Run("duplicate headings merged", func(t *testing.T) {
		sections := SplitIntoSections("= A =\none\n== Notes ==\nfirst\n== Notes ==\nsecond", false)
		assert.Equal(t, []string{"A", "Notes"}, sections.Titles())
		body, _ := sections.Get("Notes")
		assert.Equal(t, "first\n\nsecond", body)
	})

	t.Run("heading without body", func(t *testing.T) {
		sections := SplitIntoSections("= Only =", false)
		first, ok := sections.First()
		require.True(t, ok)
		assert.Equal(t, Section{Title: "Only"}, first)
	})

	t.Run("CRLF", func(t *testing.T) {
		sections := SplitIntoSections("= A =\r\nline one\r\nline two\r\n== B ==\r\nx\r\n", false)
		body, _ := sections.Get("A")
		assert.Equal(t, "line one\r\nline two", body)
		assert.Equal(t, []string{"A", "B"}, sections.Titles())
	})

	t.Run("empty text", func(t *testing.T) {
		sections := SplitIntoSections("", true)
		assert.Equal(t, 0, sections.Len())
		_, ok := sections.First()
		assert.False(t, ok)
	})
}

func TestCategorySection(t *testing.T) {
	assert.Equal(t, "[[CategoryAPI]], [[CategoryVideo]]", CategorySection("body\n----\n[[CategoryAPI]], [[CategoryVideo]]\n"))
	assert.Equal(t, "[[B]]", CategorySection("----\n[[A]]\n----\n[[B]]"))
	assert.Equal(t, "", CategorySection("no marker"))
}
