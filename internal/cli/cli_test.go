package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packageServer answers like a DSM package center and records the arch it was
// asked for
func packageServer(t *testing.T, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var archs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		archs = append(archs, r.Form.Get("arch"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &archs
}

func writeConfig(t *testing.T, urls ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("cache:\n  ttl: 0s\nhttp:\n  retry_max: 1\n  retry_wait_min: 1ms\n  retry_wait_max: 2ms\n")
	b.WriteString("architectures: [armada375]\nmodels: [DS215j]\nsources:\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "  - id: src%d\n    url: %s\n", i, u)
	}
	path := filepath.Join(t.TempDir(), "spksearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	first, archs := packageServer(t, `{"packages":[{"package":"transmission","dname":"Transmission","desc":"BitTorrent","version":"2.94-14"}]}`)
	second, _ := packageServer(t, `[{"package":"mono","dname":"Mono","desc":"Runtime","version":"5.8-1"}]`)
	cfg := writeConfig(t, first.URL, second.URL)

	out, err := execute(t, "search", "--config", cfg,
		"--arch", "armada375", "--model", "DS215j", "--version", "6.1-15152")
	require.NoError(t, err)

	assert.Contains(t, out, "transmission")
	assert.Contains(t, out, "mono")
	assert.Less(t, strings.Index(out, "transmission"), strings.Index(out, "mono"))
	assert.Equal(t, []string{"armada375"}, *archs)
}

func TestSearchCommandJSON(t *testing.T) {
	srv, _ := packageServer(t, `{"packages":[{"package":"transmission","dname":"Transmission","version":"2.94-14"},{"package":"mono","dname":"Mono","version":"5.8-1"}]}`)
	cfg := writeConfig(t, srv.URL)

	out, err := execute(t, "search", "mono", "--config", cfg, "--json",
		"--arch", "armada375", "--model", "DS215j", "--version", "6.1-15152")
	require.NoError(t, err)

	var resp struct {
		Packages []struct {
			Name string `json:"name"`
		} `json:"packages"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "Mono", resp.Packages[0].Name)
}

func TestSearchCommandRejectsUnknownArch(t *testing.T) {
	srv, archs := packageServer(t, `[]`)
	cfg := writeConfig(t, srv.URL)

	_, err := execute(t, "search", "--config", cfg,
		"--arch", "none", "--model", "DS215j", "--version", "6.1-15152")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported architecture")
	assert.Empty(t, *archs)
}

func TestSearchCommandRejectsBadVersion(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1")

	_, err := execute(t, "search", "--config", cfg,
		"--arch", "armada375", "--model", "DS215j", "--version", "4.0x-1300")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VersionParse")
}

func TestSourcesCommand(t *testing.T) {
	out, err := execute(t, "sources", "--config", "../config/testdata/config.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "synocommunity")
	assert.Contains(t, out, "http://packages.synocommunity.com")
	assert.Contains(t, out, "unsupported")
}

func TestUnknownLogFormat(t *testing.T) {
	_, err := execute(t, "sources", "--config", "../config/testdata/config.yaml", "--log-format", "xml")
	assert.Error(t, err)
}

func TestSearchCommandRefreshDropsCache(t *testing.T) {
	srv, archs := packageServer(t, `[{"package":"mono","dname":"Mono","version":"5.8-1"}]`)
	path := writeConfig(t, srv.URL)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = []byte(strings.Replace(string(content), "ttl: 0s", "ttl: 1h", 1))
	require.NoError(t, os.WriteFile(path, content, 0644))

	args := []string{"search", "--config", path, "--arch", "armada375", "--model", "DS215j", "--version", "6.1-15152"}

	_, err = execute(t, args...)
	require.NoError(t, err)
	_, err = execute(t, args...)
	require.NoError(t, err)
	assert.Len(t, *archs, 1, "second search is served from the cache")

	out, err := execute(t, append(args, "--refresh")...)
	require.NoError(t, err)
	assert.Contains(t, out, "mono")
	assert.Len(t, *archs, 2)
}
