package rewrite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/sitearchive/pkg/logger"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// TreeStats summarises a RewriteTree pass.
type TreeStats struct {
	Scanned   int
	Matched   int
	Rewritten int
}

// RewriteTree walks fs in lexical order and runs Page over every regular file
// whose slash path matches the include glob. Files are read fully and written
// back in place with their original permissions.
func (r *Rewriter) RewriteTree(fs billy.Filesystem, include string) (*TreeStats, error) {
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("invalid include pattern %q", include)
	}

	stats := &TreeStats{}
	err := util.Walk(fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		stats.Scanned++

		rel := filepath.ToSlash(path)
		ok, err := doublestar.Match(include, rel)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		stats.Matched++

		changed, err := r.rewriteFile(fs, path, info.Mode().Perm())
		if err != nil {
			return err
		}
		if changed {
			stats.Rewritten++
		}
		logger.Trace("page processed", logger.String("path", rel), logger.Bool("changed", changed))
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Rewriter) rewriteFile(fs billy.Filesystem, path string, perm os.FileMode) (bool, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	out, err := r.Page(string(data))
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	// Always written back, matching a plain read-transform-write pass.
	if err := util.WriteFile(fs, path, []byte(out), perm); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out != string(data), nil
}
