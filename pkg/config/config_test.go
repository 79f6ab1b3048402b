package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate moves the test into an empty working directory and home so that no
// developer config leaks into the assertions.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRepo, cfg.Source.Repo)
	assert.Equal(t, "", cfg.Source.Ref)
	assert.Equal(t, 0, cfg.Source.Depth)
	assert.Equal(t, "previous", cfg.Archive.PreviousRoute)
	assert.Equal(t, ".", cfg.Archive.OutputDir)
	assert.Equal(t, "archives.json", cfg.Archive.Manifest)
	assert.Equal(t, "theme/scripts/search.js", cfg.Archive.SearchScript)
	assert.Equal(t, "**/*.html", cfg.Archive.Include)
	assert.Equal(t, "CNAME", cfg.Archive.DomainMapping)
}

func TestLoadDiscoveredFile(t *testing.T) {
	dir := isolate(t)
	content := []byte("source:\n  repo: file:///srv/site\n  ref: gh-pages\narchive:\n  manifest: data/archives.json\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sitearchive.yaml"), content, 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file:///srv/site", cfg.Source.Repo)
	assert.Equal(t, "gh-pages", cfg.Source.Ref)
	assert.Equal(t, "data/archives.json", cfg.Archive.Manifest)
	assert.Equal(t, "previous", cfg.Archive.PreviousRoute, "unset keys keep defaults")
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SITEARCHIVE_SOURCE_REPO", "mitre-attack/attack-website")
	t.Setenv("SITEARCHIVE_ARCHIVE_PREVIOUS_ROUTE", "/old/")
	t.Setenv("SITEARCHIVE_ARCHIVE_OUTPUT_DIR", "site")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mitre-attack/attack-website", cfg.Source.Repo)
	assert.Equal(t, "old", cfg.Archive.PreviousRoute, "slashes are trimmed")
	assert.Equal(t, "site", cfg.Archive.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty repo", func(c *Config) { c.Source.Repo = " " }},
		{"negative depth", func(c *Config) { c.Source.Depth = -1 }},
		{"nested route", func(c *Config) { c.Archive.PreviousRoute = "a/b" }},
		{"empty route", func(c *Config) { c.Archive.PreviousRoute = "/" }},
		{"no manifest", func(c *Config) { c.Archive.Manifest = "" }},
		{"no search script", func(c *Config) { c.Archive.SearchScript = "" }},
		{"no include", func(c *Config) { c.Archive.Include = "" }},
		{"no domain mapping", func(c *Config) { c.Archive.DomainMapping = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidateDefaultsOutputDir(t *testing.T) {
	cfg := Default()
	cfg.Archive.OutputDir = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".", cfg.Archive.OutputDir)
}
