// Package rewrite turns pages of a cloned site into pages that live under a
// versioned path such as /previous/june2025/.
//
// All transforms are plain text substitutions. The link rewrite in particular
// is a prefix injection over every quoted src/href value built from the
// allowed character class: relative values and external-looking values that
// fit the class are prefixed too. That breadth is part of the contract.
package rewrite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// LinkChars is the character class a quoted attribute value must consist of
// to be rewritten: word characters plus - ? \ $ . ! * ' ( ) /
const LinkChars = `-?\p{L}\p{N}_\\$.!*'()/`

// LinkAttributes are rewritten in this order.
var LinkAttributes = []string{"src", "href"}

var attrPatterns = compileAttrPatterns(LinkAttributes)

func compileAttrPatterns(attrs []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(attrs))
	for _, attr := range attrs {
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(attr)+`=["']([`+LinkChars+`]+)["']`))
	}
	return patterns
}

// Params identifies the version being produced.
type Params struct {
	PreviousRoute string
	Slug          string
	DateStart     string
	DateEnd       string
}

// Rewriter applies the page and script transforms for one version.
type Rewriter struct {
	params    Params
	base      string
	templates []string
	restores  []string
}

// New validates p and prepares a Rewriter.
func New(p Params) (*Rewriter, error) {
	p.PreviousRoute = strings.Trim(p.PreviousRoute, "/")
	if p.PreviousRoute == "" {
		return nil, errors.New("previous route cannot be empty")
	}
	if p.Slug == "" || strings.Contains(p.Slug, "/") {
		return nil, fmt.Errorf("invalid version slug %q", p.Slug)
	}

	base := "/" + p.PreviousRoute + "/" + p.Slug
	escaped := strings.ReplaceAll(base, "$", "$$")

	r := &Rewriter{params: p, base: base}
	for _, attr := range LinkAttributes {
		r.templates = append(r.templates, attr+`="`+escaped+`${1}"`)
	}
	for _, page := range LivePages {
		r.restores = append(r.restores, base+page, page)
	}
	return r, nil
}

// Base is the versioned root path, e.g. /previous/june2025.
func (r *Rewriter) Base() string { return r.base }

// Params returns the parameters the Rewriter was built with.
func (r *Rewriter) Params() Params { return r.params }

// RewriteLinks prefixes every quoted src and href value matching LinkChars
// with the versioned base. The whole captured value is kept after the prefix.
func (r *Rewriter) RewriteLinks(html string) string {
	for i, re := range attrPatterns {
		html = re.ReplaceAllString(html, r.templates[i])
	}
	return html
}

// LivePages exist only on the live site; archived copies link back to them.
var LivePages = []string{
	"/resources/previous-versions/",
	"/resources/updates/",
}

// RestoreLiveLinks points the rewritten previous-versions and updates
// dropdown links back at the unversioned live pages.
func (r *Rewriter) RestoreLiveLinks(html string) string {
	return strings.NewReplacer(r.restores...).Replace(html)
}

// Page runs the full page transform: links, banner, live-link restore.
func (r *Rewriter) Page(html string) (string, error) {
	html = r.RewriteLinks(html)
	html, err := r.InjectBanner(html)
	if err != nil {
		return "", err
	}
	return r.RestoreLiveLinks(html), nil
}
