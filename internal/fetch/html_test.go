package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoryPage = `<!DOCTYPE html>
<html>
<body>
  <div id="sidebar"><a href="/FrontPage">Front</a></div>
  <div id="content">
    <div class="searchresults">
      <ul>
        <li><a href="/SDL_CreateWindow?highlight=%28CategoryAPI%29">SDL_CreateWindow</a></li>
        <li><a href="/SDL_Init">  SDL_Init  </a></li>
        <li><a>no link</a></li>
      </ul>
    </div>
  </div>
</body>
</html>`

func TestExtractAnchors(t *testing.T) {
	anchors, err := ExtractAnchors(categoryPage, "#content .searchresults a")
	require.NoError(t, err)
	require.Len(t, anchors, 2)

	assert.Equal(t, "SDL_CreateWindow", anchors[0].Text)
	assert.Equal(t, "/SDL_CreateWindow?highlight=%28CategoryAPI%29", anchors[0].Href)
	assert.Equal(t, "SDL_Init", anchors[1].Text)
}

func TestExtractAnchors_NoMatches(t *testing.T) {
	anchors, err := ExtractAnchors("<html><body><p>empty</p></body></html>", "#content .searchresults a")
	require.NoError(t, err)
	assert.Empty(t, anchors)
}

func TestIsStructuredMarkup(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"full document", categoryPage, true},
		{"fragment", "<div><p>hello</p></div>", true},
		{"leading comment", "<!-- generated --><html><body></body></html>", true},
		{"wiki text", "= SDL_Init =\nInitialize the library.\n----\nCategoryAPI", false},
		{"wiki text with inline tag", "Use <<TableOfContents>> and <b>bold</b>", false},
		{"empty", "", false},
		{"whitespace", "   \n", false},
		{"only start tag", "<html>", false},
		{"stray end tag first", "</div> trailing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStructuredMarkup(tt.text))
		})
	}
}
