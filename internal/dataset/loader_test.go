package dataset

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcarvalho/mtbench-runner/internal/config"
)

func loaderConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LocalDataFile = filepath.Join(t.TempDir(), "mtbench101.jsonl")
	cfg.MTBenchURL = url
	return cfg
}

func TestLoadFetchesAndCachesWhenFileAbsent(t *testing.T) {
	corpus := `{"id": 1, "category": "math", "turns": ["q1", "q2"]}
{"id": 2, "category": "writing", "history": [{"user": "a"}, {"user": "b"}]}
`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(corpus))
	}))
	defer srv.Close()

	cfg := loaderConfig(t, srv.URL)
	records, err := Load(cfg)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "math", records[0].Category)
	assert.Equal(t, []string{"a", "b"}, records[1].UserTurns())

	// Raw response text cached verbatim.
	cached, err := os.ReadFile(cfg.LocalDataFile)
	require.NoError(t, err)
	assert.Equal(t, corpus, string(cached))
}

func TestLoadUsesExistingCacheWithoutFetching(t *testing.T) {
	cfg := loaderConfig(t, "http://127.0.0.1:1/unreachable")
	require.NoError(t, os.WriteFile(cfg.LocalDataFile, []byte(`{"id": 7, "turns": ["x", "y"]}`+"\n"), 0644))

	records, err := Load(cfg)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "unknown", records[0].CategoryOrDefault())
}

func TestLoadSkipsBlankLines(t *testing.T) {
	cfg := loaderConfig(t, "http://unused")
	payload := "\n" + `{"id": 1, "turns": ["a", "b"]}` + "\n\n   \n" + `{"id": 2, "turns": ["c", "d"]}` + "\n"
	require.NoError(t, os.WriteFile(cfg.LocalDataFile, []byte(payload), 0644))

	records, err := Load(cfg)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLoadMalformedLineIsFatal(t *testing.T) {
	cfg := loaderConfig(t, "http://unused")
	payload := `{"id": 1, "turns": ["a", "b"]}` + "\n" + `{"id": 2, "turns": [` + "\n"
	require.NoError(t, os.WriteFile(cfg.LocalDataFile, []byte(payload), 0644))

	_, err := Load(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestLoadFetchFailureLeavesNoPartialCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := loaderConfig(t, srv.URL)
	_, err := Load(cfg)
	require.Error(t, err)

	_, statErr := os.Stat(cfg.LocalDataFile)
	assert.True(t, os.IsNotExist(statErr), "failed fetch must not leave a cache file behind")
}

func TestLoadFetchConnectionFailure(t *testing.T) {
	cfg := loaderConfig(t, "http://127.0.0.1:1/unreachable")

	_, err := Load(cfg)
	require.Error(t, err)

	_, statErr := os.Stat(cfg.LocalDataFile)
	assert.True(t, os.IsNotExist(statErr))
}
