package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/movie-ratings/reelscrape/internal/table"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	t.Cleanup(viper.Reset)
}

func TestVersion(t *testing.T) {
	resetConfig(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "reelscrape v"+Version+"\n", out)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	resetConfig(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REELSCRAPE_CONCURRENCY_WORKERS", "4")
	t.Setenv("REELSCRAPE_HTTP_FETCH_TIMEOUT", "5s")
	t.Setenv("REELSCRAPE_CAST_BASE_URL", "http://mirror.local/title/")

	initConfig()
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency.Workers)
	assert.Equal(t, 5*time.Second, cfg.HTTP.FetchTimeout)
	assert.Equal(t, "http://mirror.local/title/", cfg.Cast.BaseURL)
	assert.Equal(t, "fullcredits", cfg.Cast.PathSuffix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	resetConfig(t)
	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	t.Cleanup(func() { cfgFile = "" })

	initConfig()
	_, err := loadConfig()
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	resetConfig(t)
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	_, err := execute(t, "config", "init", "--path", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fetch_timeout: 30s")
	assert.Contains(t, string(data), "max_names: 10")

	// A second init refuses to overwrite
	_, err = execute(t, "config", "init", "--path", path)
	assert.Error(t, err)

	// The written file loads back
	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "selector: span.a-size-medium.a-text-bold")
}

func TestScrapeAndMerge(t *testing.T) {
	resetConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/title/tt0114709" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, `<html><body>
<span class="a-size-medium a-text-bold">$191,796,233</span>
<span class="a-size-medium a-text-bold">$181,757,800</span>
<span class="a-size-medium a-text-bold">$373,554,033</span>
</body></html>`)
	}))
	defer server.Close()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(
		"boxoffice:\n  base_url: %s/title/\ncache:\n  enabled: false\nrate_limiting:\n  requests_per_second: 0\n",
		server.URL)), 0o644))

	input := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(input, []byte("movieId,imdbId,tmdbId\n1,114709,862\n2,0,\n3,113497,8844\n"), 0o644))

	_, err := execute(t, "--config", configPath, "scrape", "boxoffice",
		"--input", input, "--output-dir", dir, "--start", "0", "--end", "2", "--ignore-robots")
	require.NoError(t, err)

	first, err := table.LoadFile(filepath.Join(dir, "boxoffice_0_to_1.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"imdbId", "Domestic", "International", "WorldWide"}, first.Columns)
	assert.Equal(t, [][]string{{"114709", "191796233", "181757800", "373554033"}}, first.Rows)

	_, err = execute(t, "--config", configPath, "scrape", "boxoffice",
		"--input", input, "--output-dir", dir, "--start", "2", "--end", "3", "--ignore-robots", "--write-index")
	require.NoError(t, err)

	second, err := table.LoadFile(filepath.Join(dir, "boxoffice_2_to_2.csv"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0", "113497", "", "", ""}}, second.Rows, "a 404 still yields a row")

	dbPath := filepath.Join(dir, "movies.db")
	out, err := execute(t, "--config", configPath, "merge", "boxoffice", "--dir", dir, "--sqlite", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "boxoffice.csv")

	merged, err := table.LoadFile(filepath.Join(dir, "boxoffice.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"imdbId", "Domestic", "International", "WorldWide"}, merged.Columns)
	require.Equal(t, 2, merged.Len())
	assert.Equal(t, "114709", merged.Rows[0][0])
	assert.Equal(t, "113497", merged.Rows[1][0])

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestScrape_UnknownKind(t *testing.T) {
	resetConfig(t)
	input := filepath.Join(t.TempDir(), "ids.txt")
	require.NoError(t, os.WriteFile(input, []byte("114709\n"), 0o644))

	_, err := execute(t, "scrape", "trivia", "--input", input)
	assert.Error(t, err)
}
