package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  backend: rest
  rest_base_url: http://api.local
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "estate-search", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "/search", cfg.Server.BasePath)
	assert.Equal(t, 5000, cfg.Search.QueryTimeout)
	assert.Equal(t, "properties", cfg.Search.Index)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("LISTINGS_API", "http://listings.internal:9000")
	path := writeConfig(t, `
server:
  base_path: "properties/search/"
search:
  backend: rest
  rest_base_url: ${LISTINGS_API}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://listings.internal:9000", cfg.Search.RESTBaseURL)
	assert.Equal(t, "/properties/search", cfg.Server.BasePath)
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	t.Setenv("SEARCH_BACKEND", "elasticsearch")
	t.Setenv("DATABASE_ELASTICSEARCH_URL", "http://es:9200")
	path := writeConfig(t, `
search:
  backend: rest
  rest_base_url: http://api.local
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, BackendElasticsearch, cfg.Search.Backend)
	assert.Equal(t, []string{"http://es:9200"}, cfg.Database.Elasticsearch.Addresses)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "rest backend without url",
			cfg:     Config{Search: SearchConfig{Backend: BackendREST}},
			wantErr: "rest_base_url",
		},
		{
			name:    "elasticsearch backend without address",
			cfg:     Config{Search: SearchConfig{Backend: BackendElasticsearch}},
			wantErr: "elasticsearch",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Search: SearchConfig{Backend: "solr"}},
			wantErr: "search.backend",
		},
		{
			name: "cache without redis",
			cfg: Config{Search: SearchConfig{
				Backend: BackendREST, RESTBaseURL: "http://x", CacheEnabled: true,
			}},
			wantErr: "redis",
		},
		{
			name: "valid",
			cfg: Config{Search: SearchConfig{
				Backend: BackendREST, RESTBaseURL: "http://x",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(&tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
