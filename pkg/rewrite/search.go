package rewrite

import (
	"fmt"
	"regexp"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

var searchBaseURL = regexp.MustCompile(`site_base_url ?= ? ""`)

// PatchSearchScript points the first empty site_base_url assignment at the
// versioned base. It reports whether an assignment was found; a script
// without one is returned unchanged.
func (r *Rewriter) PatchSearchScript(js string) (string, bool) {
	loc := searchBaseURL.FindStringIndex(js)
	if loc == nil {
		return js, false
	}
	return js[:loc[0]] + `site_base_url = "` + r.base + `"` + js[loc[1]:], true
}

// PatchSearchFile applies PatchSearchScript to the script at name in fs.
// The script must exist.
func (r *Rewriter) PatchSearchFile(fs billy.Filesystem, name string) (bool, error) {
	info, err := fs.Stat(name)
	if err != nil {
		return false, fmt.Errorf("search script %s: %w", name, err)
	}
	data, err := util.ReadFile(fs, name)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	patched, ok := r.PatchSearchScript(string(data))
	if !ok {
		return false, nil
	}
	if err := util.WriteFile(fs, name, []byte(patched), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return true, nil
}
