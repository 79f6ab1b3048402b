package rewrite

import (
	"fmt"
	"strings"

	"github.com/aymerick/raymond"
)

// BannerPlaceholder marks where the live site's layout wants the banner.
const BannerPlaceholder = "<!-- !previous versions banner! -->"

// Values are substituted raw (triple-stash) so display dates and paths land
// in the page exactly as given.
const bannerSource = `<div class="container-fluid version-banner">` +
	`<div class="icon-inline baseline mr-1">` +
	`<img src="{{{base}}}/theme/images/icon-warning-24px.svg">` +
	`</div>This is a preserved version of the site that was ` +
	`live between {{{start}}} and {{{end}}}. ` +
	`<a href="/resources/previous-versions/">` +
	`See other versions</a> or <a href="/">` +
	`the current version</a>.</div>`

var bannerTemplate = raymond.MustParse(bannerSource)

// Banner renders the version banner for r.
func (r *Rewriter) Banner() (string, error) {
	out, err := bannerTemplate.Exec(map[string]string{
		"base":  r.base,
		"start": r.params.DateStart,
		"end":   r.params.DateEnd,
	})
	if err != nil {
		return "", fmt.Errorf("render version banner: %w", err)
	}
	return out, nil
}

// InjectBanner replaces every banner placeholder. Pages without one are
// returned unchanged.
func (r *Rewriter) InjectBanner(html string) (string, error) {
	if !strings.Contains(html, BannerPlaceholder) {
		return html, nil
	}
	banner, err := r.Banner()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(html, BannerPlaceholder, banner), nil
}
