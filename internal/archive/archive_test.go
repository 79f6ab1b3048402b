package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/fulmenhq/sitearchive/pkg/manifest"
	"github.com/fulmenhq/sitearchive/pkg/rewrite"
	"github.com/fulmenhq/sitearchive/pkg/sanitize"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layout = `<html><head><link href="/theme/style.css"></head><body>
<!-- !previous versions banner! -->
<a class="dropdown-item" href="/resources/previous-versions/">Previous Versions</a>
<a class="dropdown-item" href="/resources/updates/">Updates</a>
<a href="/resources/about/">About</a>
</body></html>`

func siteFiles() map[string]string {
	return map[string]string{
		"CNAME":                                  "attack.mitre.org\n",
		"index.html":                             layout,
		"resources/about/index.html":             `<a href="/resources/about/">About</a>`,
		"resources/previous-versions/index.html": "<p>versions</p>",
		"resources/updates/index.html":           "<p>updates</p>",
		"previous/oct2018/index.html":            "<p>old archive</p>",
		"theme/scripts/search.js":                "let site_base_url = \"\";\n",
		"theme/images/icon-warning-24px.svg":     "<svg/>",
	}
}

func initSiteRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o640))
	}
	_, err = worktree.Add(".")
	require.NoError(t, err)
	_, err = worktree.Commit("site build", &git.CommitOptions{
		Author: &object.Signature{Name: "sitearchive", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

type fixture struct {
	opts     Options
	manifest string
	progress *bytes.Buffer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	var progress bytes.Buffer
	prev := logger.SetProgressOutput(&progress)
	t.Cleanup(func() { logger.SetProgressOutput(prev) })
	require.NoError(t, logger.Initialize(logger.Config{Level: logger.DebugLevel}))
	logger.SetOutput(io.Discard)

	work := t.TempDir()
	manifestPath := filepath.Join(work, "archives.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`[
    {
        "path": "oct2018",
        "date_start": "April 25, 2018",
        "date_end": "October 23, 2018",
        "changelog": "updates-october-2018"
    }
]`), 0o644))

	return &fixture{
		opts: Options{
			Repo:          "file://" + initSiteRepo(t, files),
			OutputDir:     work,
			PreviousRoute: "previous",
			Manifest:      manifestPath,
			SearchScript:  "theme/scripts/search.js",
			Include:       "**/*.html",
			DomainMapping: "CNAME",
		},
		manifest: manifestPath,
		progress: &progress,
	}
}

var june = Request{Slug: "june2025", DateStart: "June 1, 2025", DateEnd: "July 1, 2025", Changelog: "updates-june-2025"}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun(t *testing.T) {
	fx := newFixture(t, siteFiles())

	summary, err := Run(context.Background(), june, fx.opts)
	require.NoError(t, err)

	dest := filepath.Join(fx.opts.OutputDir, "june2025")
	assert.Equal(t, dest, summary.Dest)
	assert.Equal(t, 2, summary.ManifestEntries)
	assert.True(t, summary.SearchPatched)
	assert.Equal(t, 2, summary.Pages.Matched)

	// sanitization
	assert.NoDirExists(t, filepath.Join(dest, ".git"))
	assert.NoFileExists(t, filepath.Join(dest, "CNAME"))
	assert.NoDirExists(t, filepath.Join(dest, "previous"))
	assert.NoDirExists(t, filepath.Join(dest, "resources", "previous-versions"))
	assert.NoDirExists(t, filepath.Join(dest, "resources", "updates"))

	// link rewriting
	about := readString(t, filepath.Join(dest, "resources", "about", "index.html"))
	assert.Equal(t, `<a href="/previous/june2025/resources/about/">About</a>`, about)

	index := readString(t, filepath.Join(dest, "index.html"))
	assert.NotContains(t, index, rewrite.BannerPlaceholder)
	assert.Contains(t, index, `<link href="/previous/june2025/theme/style.css">`)
	assert.Contains(t, index, `<a class="dropdown-item" href="/resources/previous-versions/">Previous Versions</a>`)
	assert.Contains(t, index, `<a class="dropdown-item" href="/resources/updates/">Updates</a>`)
	assert.Contains(t, index, "live between June 1, 2025 and July 1, 2025.")

	// script patch
	assert.Equal(t, "let site_base_url = \"/previous/june2025\";\n", readString(t, filepath.Join(dest, "theme", "scripts", "search.js")))

	// manifest
	m, err := manifest.Load(fx.manifest)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, june.Version(), last)

	out := fx.progress.String()
	assert.Contains(t, out, "preserving current version under route 'june2025'")
	assert.Contains(t, out, "\t- replacing links... done\n")
	assert.Contains(t, out, "\t- updating archives.json... done\n")
}

func TestRunTwiceReplacesDestination(t *testing.T) {
	fx := newFixture(t, siteFiles())

	first, err := Run(context.Background(), june, fx.opts)
	require.NoError(t, err)
	assert.False(t, first.Clone.Replaced)

	stray := filepath.Join(fx.opts.OutputDir, "june2025", "stray.html")
	require.NoError(t, os.WriteFile(stray, []byte("left over"), 0o600))

	second, err := Run(context.Background(), june, fx.opts)
	require.NoError(t, err)
	assert.True(t, second.Clone.Replaced)
	assert.NoFileExists(t, stray)
	assert.Contains(t, fx.progress.String(), "previous version exists with this name already")

	// the second clone is fresh, so pages carry a single prefix
	about := readString(t, filepath.Join(fx.opts.OutputDir, "june2025", "resources", "about", "index.html"))
	assert.Equal(t, `<a href="/previous/june2025/resources/about/">About</a>`, about)

	m, err := manifest.Load(fx.manifest)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len(), "duplicate entries are not filtered")
}

func TestRunMissingDomainMappingLeavesManifest(t *testing.T) {
	files := siteFiles()
	delete(files, "CNAME")
	fx := newFixture(t, files)
	before := readString(t, fx.manifest)

	_, err := Run(context.Background(), june, fx.opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sanitize.ErrDomainMappingMissing))
	assert.Equal(t, exitcode.FileSystemError, exitcode.FromError(err))
	assert.Equal(t, before, readString(t, fx.manifest))
	assert.NotContains(t, fx.progress.String(), "updating archives.json")
}

func TestRunMissingSearchScript(t *testing.T) {
	files := siteFiles()
	delete(files, "theme/scripts/search.js")
	fx := newFixture(t, files)
	before := readString(t, fx.manifest)

	_, err := Run(context.Background(), june, fx.opts)
	require.Error(t, err)
	assert.Equal(t, before, readString(t, fx.manifest))
}

func TestRunSearchScriptWithoutAssignment(t *testing.T) {
	files := siteFiles()
	files["theme/scripts/search.js"] = "let site_base_url = \"/already\";\n"
	fx := newFixture(t, files)

	summary, err := Run(context.Background(), june, fx.opts)
	require.NoError(t, err)
	assert.False(t, summary.SearchPatched)
}

func TestRunCloneFailure(t *testing.T) {
	fx := newFixture(t, siteFiles())
	fx.opts.Repo = "file://" + filepath.Join(t.TempDir(), "missing")
	before := readString(t, fx.manifest)

	_, err := Run(context.Background(), june, fx.opts)
	require.Error(t, err)
	assert.Equal(t, exitcode.NetworkError, exitcode.FromError(err))
	assert.Equal(t, before, readString(t, fx.manifest))
}

func TestRunMalformedManifest(t *testing.T) {
	fx := newFixture(t, siteFiles())
	require.NoError(t, os.WriteFile(fx.manifest, []byte(`{"not": "a list"}`), 0o644))

	_, err := Run(context.Background(), june, fx.opts)
	require.Error(t, err)
	assert.Equal(t, exitcode.ValidationError, exitcode.FromError(err))
}

func TestValidateSlug(t *testing.T) {
	for _, ok := range []string{"june2025", "january1970", "oct-2018", "v_2"} {
		assert.NoError(t, ValidateSlug(ok), ok)
	}
	for _, bad := range []string{"", "..", "a/b", "/abs", "june 2025", "juné", "a?b"} {
		err := ValidateSlug(bad)
		assert.ErrorIs(t, err, ErrInvalidSlug, bad)
	}
}

func TestRunRejectsBadSlugBeforeTouchingDisk(t *testing.T) {
	fx := newFixture(t, siteFiles())
	_, err := Run(context.Background(), Request{Slug: "../escape"}, fx.opts)
	require.Error(t, err)
	assert.Equal(t, exitcode.ValidationError, exitcode.FromError(err))

	entries, err := os.ReadDir(fx.opts.OutputDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, "archives.json", strings.Join(names, ","))
}
