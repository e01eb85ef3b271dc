package extract

import (
	"regexp"
	"strings"
)

// nonContentTagRe strips whole navigation/header/footer/sidebar elements.
// adDivRe strips div/section containers whose class or id names them as
// ad/nav/social/comment/related chrome. Grounded on
// original_source/headline_worker/modules/content_extractor.py:
// clean_html_for_ai.
var (
	nonContentTagRe = regexp.MustCompile(`(?is)<(nav|header|footer|aside)[^>]*>.*?</(nav|header|footer|aside)>`)
	adClassDivRe    = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*(?:ad|advertisement|banner|sidebar|footer|header|nav|menu|social|related|comment)[^"]*".*?</div>`)
	adIDDivRe       = regexp.MustCompile(`(?is)<div[^>]*id="[^"]*(?:ad|advertisement|banner|sidebar|footer|header|nav|menu|social|related|comment)[^"]*".*?</div>`)
	whitespaceRunRe = regexp.MustCompile(`\s+`)
)

// CleanHTMLForAI removes script/style blocks, navigation/header/footer/aside
// elements, and ad- or nav-labeled div containers, leaving only the
// main-content HTML an AI classifier should see. Grounded on
// content_extractor.py:clean_html_for_ai.
func CleanHTMLForAI(html string) string {
	html = scriptTagRe.ReplaceAllString(html, "")
	html = styleTagRe.ReplaceAllString(html, "")
	html = nonContentTagRe.ReplaceAllString(html, "")
	html = adClassDivRe.ReplaceAllString(html, "")
	html = adIDDivRe.ReplaceAllString(html, "")
	html = tripleNlRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}

// PlainText strips all tags and collapses whitespace, mirroring the
// extractor's quick plain-text rendering alongside markdown/clean_html.
func PlainText(html string) string {
	text := anyTagRe.ReplaceAllString(html, " ")
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
