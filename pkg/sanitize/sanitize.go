// Package sanitize strips live-site-only content from a cloned tree before it
// is archived.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrDomainMappingMissing is returned when the clone has no domain-mapping file.
var ErrDomainMappingMissing = errors.New("domain-mapping file missing from cloned source")

// Options names the entries to strip. Paths are slash separated and relative
// to the filesystem root.
type Options struct {
	// PreviousRoute is the directory holding earlier archives in the live site.
	PreviousRoute string
	// DomainMapping is the required custom-domain file (CNAME on GitHub Pages).
	DomainMapping string
}

// Target is one removal performed by Run. Label describes the removal and
// Skip is printed instead when the entry is already absent.
type Target struct {
	Path     string
	Label    string
	Skip     string
	Required bool
}

// Report lists what was removed and what was already absent.
type Report struct {
	Removed []string
	Skipped []string
}

// Targets returns the removals in the order Run performs them.
func Targets(opts Options) []Target {
	return []Target{
		{Path: ".git", Label: ".git from cloned repo", Skip: "no .git to remove"},
		{Path: opts.DomainMapping, Label: opts.DomainMapping, Required: true},
		{
			Path:  opts.PreviousRoute,
			Label: fmt.Sprintf("'%s' folder from preserved version to prevent recursive previous versions", opts.PreviousRoute),
			Skip:  fmt.Sprintf("no '%s' folder to remove from preserved version", opts.PreviousRoute),
		},
		{Path: path.Join("resources", "previous-versions"), Label: "previous-versions page", Skip: "no previous-versions page to remove"},
		{Path: path.Join("resources", "updates"), Label: "updates page", Skip: "no updates page to remove"},
	}
}

// Run removes every target from fs. Optional targets that do not exist are
// skipped; a missing required target aborts with ErrDomainMappingMissing
// before later targets are touched.
func Run(fs billy.Filesystem, opts Options) (*Report, error) {
	if opts.DomainMapping == "" || opts.PreviousRoute == "" {
		return nil, errors.New("sanitize: previous route and domain mapping must be set")
	}

	report := &Report{}
	for _, target := range Targets(opts) {
		if _, err := fs.Lstat(target.Path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return report, fmt.Errorf("failed to stat %s: %w", target.Path, err)
			}
			if target.Required {
				logger.Error("required file missing", logger.String("path", target.Path))
				return report, fmt.Errorf("%w: %s", ErrDomainMappingMissing, target.Path)
			}
			logger.Progress("\t- %s", target.Skip)
			report.Skipped = append(report.Skipped, target.Path)
			continue
		}

		step := logger.Step("removing " + target.Label)
		if err := util.RemoveAll(fs, target.Path); err != nil {
			err = fmt.Errorf("failed to remove %s: %w", target.Path, err)
			step.Fail(err)
			return report, err
		}
		step.Done()
		report.Removed = append(report.Removed, target.Path)
	}
	return report, nil
}
