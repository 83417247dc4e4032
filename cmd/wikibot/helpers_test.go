package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	initSource = "#pragma section-numbers off\n" +
		"= SDL_Init =\n" +
		"Initialize the '''SDL''' library.\n" +
		"== Syntax ==\n" +
		"{{{#!highlight c\n" +
		"int SDL_Init(Uint32 flags);\n" +
		"}}}\n" +
		"== Related Functions ==\n" +
		" * [[SDL_Quit]]\n" +
		"----\n" +
		"[[CategoryAPI]], [[CategoryInit]]\n"

	quitSource = "= SDL_Quit =\n" +
		"Clean up all initialized subsystems.\n" +
		"----\n" +
		"[[CategoryAPI]]\n"
)

// testWiki is a minimal MoinMoin site with a category listing and raw pages.
type testWiki struct {
	*httptest.Server

	mu    sync.Mutex
	pages map[string]string
}

func newTestWiki(t *testing.T) *testWiki {
	t.Helper()
	w := &testWiki{pages: map[string]string{
		"SDL_Init": initSource,
		"SDL_Quit": quitSource,
	}}
	w.Server = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.Close)
	return w
}

func (w *testWiki) serve(rw http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	w.mu.Lock()
	defer w.mu.Unlock()

	if name == "CategoryAPI" {
		rw.Header().Set("Content-Type", "text/html")
		var sb strings.Builder
		sb.WriteString(`<html><body><div id="content"><div class="searchresults"><ul>`)
		for _, page := range []string{"SDL_Init", "SDL_Quit"} {
			fmt.Fprintf(&sb, `<li><a href="/%s">%s</a></li>`, page, page)
		}
		sb.WriteString(`</ul></div></div></body></html>`)
		_, _ = io.WriteString(rw, sb.String())
		return
	}

	body, ok := w.pages[name]
	if !ok || r.URL.Query().Get("action") != "raw" {
		rw.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(rw, "Page "+name+" not found")
		return
	}
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(rw, body)
}

// setupEnv points the CLI at the test wiki and a temporary cache file and
// returns the cache file path.
func setupEnv(t *testing.T, w *testWiki) string {
	t.Helper()
	cacheFile := filepath.Join(t.TempDir(), "wiki_cache.json")
	t.Setenv("WIKIBOT_HOST_URL", w.URL+"/")
	t.Setenv("WIKIBOT_CACHE_FILE", cacheFile)
	t.Setenv("WIKIBOT_LOG_LEVEL", "error")
	t.Setenv("WIKIBOT_RETRY_STEP", "1ms")
	t.Setenv("WIKIBOT_THROTTLE_ENABLED", "false")
	t.Setenv("WIKIBOT_DATABASE_URL", "")
	return cacheFile
}

// executeCommand runs the root command in-process and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so commands don't leak
// state between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
