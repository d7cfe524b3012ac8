package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
	"github.com/gyaneshwarpardhi/upsell/internal/source"
)

func TestFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	data, err := source.NewFile(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = source.NewFile(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.True(t, errors.Is(err, source.ErrNotFound))

	_, err = source.NewFile("").Load(context.Background())
	assert.Error(t, err)
}

func TestPostHog_Load(t *testing.T) {
	var gotPath, gotAuth, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"results":[{"event":"page_view","distinct_id":"u1"}]}`))
	}))
	defer srv.Close()

	ph, err := source.NewPostHog(config.PostHogConf{Host: srv.URL + "/", ProjectID: "42", APIKey: "phx_secret", Limit: 100}, srv.Client())
	require.NoError(t, err)

	body, err := ph.WithLimit(25).Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(body), `"results"`)
	assert.Equal(t, "/api/projects/42/events/", gotPath)
	assert.Equal(t, "Bearer phx_secret", gotAuth)
	assert.Equal(t, "25", gotLimit)
}

func TestPostHog_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	ph, err := source.NewPostHog(config.PostHogConf{Host: srv.URL, ProjectID: "42", APIKey: "bad"}, srv.Client())
	require.NoError(t, err)

	_, err = ph.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid token")
}

func TestNewPostHog_RequiresCredentials(t *testing.T) {
	_, err := source.NewPostHog(config.PostHogConf{ProjectID: "42"}, nil)
	assert.Error(t, err)
	_, err = source.NewPostHog(config.PostHogConf{APIKey: "k"}, nil)
	assert.Error(t, err)
}
