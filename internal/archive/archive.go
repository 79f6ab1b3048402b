// Package archive runs the preserve pipeline: clone the live site, strip
// live-only content, rewrite pages under the versioned route, patch the search
// script and record the version in the manifest.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/fulmenhq/sitearchive/pkg/exitcode"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/fulmenhq/sitearchive/pkg/manifest"
	"github.com/fulmenhq/sitearchive/pkg/rewrite"
	"github.com/fulmenhq/sitearchive/pkg/safeio"
	"github.com/fulmenhq/sitearchive/pkg/sanitize"
	"github.com/fulmenhq/sitearchive/pkg/source"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrInvalidSlug is returned for routes that are not a single URL-safe segment.
var ErrInvalidSlug = errors.New("invalid route")

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Request carries the four positional inputs of an archive run.
type Request struct {
	Slug      string
	DateStart string
	DateEnd   string
	Changelog string
}

// Version returns the manifest entry this request produces.
func (r Request) Version() manifest.Version {
	return manifest.Version{
		Path:      r.Slug,
		DateStart: r.DateStart,
		DateEnd:   r.DateEnd,
		Changelog: r.Changelog,
	}
}

// Options configures where the site comes from and how it is rewritten.
type Options struct {
	Repo          string
	Ref           string
	Depth         int
	OutputDir     string
	PreviousRoute string
	Manifest      string
	SearchScript  string
	Include       string
	DomainMapping string
}

// Summary describes a completed run.
type Summary struct {
	Dest            string
	Clone           *source.Result
	Sanitized       *sanitize.Report
	Pages           *rewrite.TreeStats
	SearchPatched   bool
	ManifestEntries int
}

// ValidateSlug checks that slug can serve as both a directory name and a URL
// path segment.
func ValidateSlug(slug string) error {
	if err := safeio.SingleSegment(slug); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSlug, slug, err)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w %q: only letters, digits, '-' and '_' are allowed", ErrInvalidSlug, slug)
	}
	return nil
}

// Run executes the pipeline. Steps run strictly in order and the first
// failure aborts the rest, leaving the destination as it was at that point.
func Run(ctx context.Context, req Request, opts Options) (*Summary, error) {
	if err := ValidateSlug(req.Slug); err != nil {
		return nil, exitcode.Wrap(exitcode.ValidationError, err)
	}

	rw, err := rewrite.New(rewrite.Params{
		PreviousRoute: opts.PreviousRoute,
		Slug:          req.Slug,
		DateStart:     req.DateStart,
		DateEnd:       req.DateEnd,
	})
	if err != nil {
		return nil, exitcode.Wrap(exitcode.ConfigError, err)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	dest := filepath.Join(outputDir, req.Slug)
	summary := &Summary{Dest: dest}

	logger.Progress("preserving current version under route '%s' (live %s to %s)", req.Slug, req.DateStart, req.DateEnd)
	logger.Info("archive started", logger.String("route", req.Slug), logger.String("dest", dest), logger.String("repo", opts.Repo))

	// 1. source acquisition
	replaced := false
	if _, err := os.Lstat(dest); err == nil {
		step := logger.Step("previous version exists with this name already: deleting previous version")
		if replaced, err = safeio.RemoveTree(dest); err != nil {
			step.Fail(err)
			return summary, exitcode.Wrap(exitcode.FileSystemError, err)
		}
		step.Done()
	}

	step := logger.Step(fmt.Sprintf("cloning %s", opts.Repo))
	cloned, err := source.Fetch(ctx, source.FetchOptions{
		Repo:  opts.Repo,
		Ref:   opts.Ref,
		Depth: opts.Depth,
		Dest:  dest,
	})
	if err != nil {
		step.Fail(err)
		code := exitcode.FileSystemError
		if errors.Is(err, source.ErrClone) {
			code = exitcode.NetworkError
		}
		return summary, exitcode.Wrap(code, fmt.Errorf("source acquisition: %w", err))
	}
	step.Done()
	cloned.Replaced = cloned.Replaced || replaced
	summary.Clone = cloned

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return summary, exitcode.Wrap(exitcode.FileSystemError, err)
	}
	tree := osfs.New(absDest, osfs.WithBoundOS())

	// 2. sanitization
	report, err := sanitize.Run(tree, sanitize.Options{
		PreviousRoute: rw.Params().PreviousRoute,
		DomainMapping: opts.DomainMapping,
	})
	summary.Sanitized = report
	if err != nil {
		return summary, exitcode.Wrap(exitcode.FileSystemError, fmt.Errorf("sanitization: %w", err))
	}

	// 3. link rewriting
	step = logger.Step("replacing links")
	pages, err := rw.RewriteTree(tree, opts.Include)
	summary.Pages = pages
	if err != nil {
		step.Fail(err)
		return summary, exitcode.Wrap(exitcode.FileSystemError, fmt.Errorf("link rewriting: %w", err))
	}
	step.Done()
	logger.Debug("pages rewritten", logger.Int("scanned", pages.Scanned), logger.Int("matched", pages.Matched), logger.Int("changed", pages.Rewritten))

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	// 4. script patch
	step = logger.Step(fmt.Sprintf("replacing 'site_base_url' in %s", filepath.Base(opts.SearchScript)))
	patched, err := rw.PatchSearchFile(tree, filepath.ToSlash(opts.SearchScript))
	if err != nil {
		step.Fail(err)
		return summary, exitcode.Wrap(exitcode.FileSystemError, fmt.Errorf("script patch: %w", err))
	}
	step.Done()
	summary.SearchPatched = patched
	if !patched {
		logger.Debug("search script has no empty site_base_url assignment", logger.String("path", opts.SearchScript))
	}

	// 5. manifest update
	step = logger.Step(fmt.Sprintf("updating %s", filepath.Base(opts.Manifest)))
	m, err := manifest.AppendVersion(opts.Manifest, req.Version())
	if err != nil {
		step.Fail(err)
		code := exitcode.FileSystemError
		if errors.Is(err, manifest.ErrMalformed) {
			code = exitcode.ValidationError
		}
		return summary, exitcode.Wrap(code, fmt.Errorf("manifest update: %w", err))
	}
	step.Done()
	summary.ManifestEntries = m.Len()

	logger.Info("archive complete",
		logger.String("route", req.Slug),
		logger.Int("pages", pages.Matched),
		logger.Int("manifest_entries", summary.ManifestEntries))
	return summary, nil
}
