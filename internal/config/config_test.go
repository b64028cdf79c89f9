package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSite() Site {
	return Site{
		Name:     "ct",
		Domain:   "example.ca",
		URL:      "https://www.example.ca",
		Label:    "en",
		BannerID: "CTR",
		StoreID:  "33",
		APIKey:   "secret",
		APIRoot:  "https://api.example.ca",
	}
}

func TestSiteValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validSite().Validate())

	cases := []struct {
		key   string
		clear func(*Site)
	}{
		{"name", func(s *Site) { s.Name = "" }},
		{"domain", func(s *Site) { s.Domain = "" }},
		{"url", func(s *Site) { s.URL = "" }},
		{"label", func(s *Site) { s.Label = "" }},
		{"id", func(s *Site) { s.BannerID = "" }},
		{"store", func(s *Site) { s.StoreID = "  " }},
		{"apikey", func(s *Site) { s.APIKey = "" }},
		{"apiroot", func(s *Site) { s.APIRoot = "" }},
	}
	for _, tc := range cases {
		s := validSite()
		tc.clear(&s)
		err := s.Validate()
		require.Error(t, err, tc.key)
		assert.Contains(t, err.Error(), tc.key)
	}

	// Mode stays optional.
	s := validSite()
	s.Mode = ModeDeal
	assert.NoError(t, s.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_CT_APIKEY", "from-env")

	path := writeConfig(t, `
sites:
  - name: ct
    domain: example.ca
    url: https://www.example.ca
    label: en
    id: CTR
    store: "33"
    apikey: ${TEST_CT_APIKEY}
    apiroot: https://api.example.ca
    mode: deal
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sites, 1)

	site := cfg.Sites[0]
	assert.Equal(t, "from-env", site.APIKey)
	assert.Equal(t, "CTR", site.BannerID)
	assert.Equal(t, "33", site.StoreID)
	assert.Equal(t, ModeDeal, site.Mode)
}

func TestLoadRejectsIncompleteSite(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sites:
  - name: ct
    domain: example.ca
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `site "ct"`)
}

func TestLoadRejectsEmptyConfig(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "sites: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sites")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
