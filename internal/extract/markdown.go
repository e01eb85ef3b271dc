package extract

import (
	"regexp"
	"strings"
)

// htmlConversions is applied in order to turn common block/inline tags into
// their markdown equivalent before remaining tags are stripped. Grounded on
// original_source/headline_worker/modules/content_extractor.py:
// convert_to_markdown.
var htmlConversions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`), "## $1\n"},
	{regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`), "$1\n\n"},
	{regexp.MustCompile(`(?is)<br[^>]*>`), "\n"},
	{regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`), "* $1\n"},
	{regexp.MustCompile(`(?is)<strong[^>]*>(.*?)</strong>`), "**$1**"},
	{regexp.MustCompile(`(?is)<b[^>]*>(.*?)</b>`), "**$1**"},
	{regexp.MustCompile(`(?is)<em[^>]*>(.*?)</em>`), "*$1*"},
	{regexp.MustCompile(`(?is)<i[^>]*>(.*?)</i>`), "*$1*"},
	{regexp.MustCompile(`(?is)<blockquote[^>]*>(.*?)</blockquote>`), "> $1\n"},
}

var (
	scriptTagRe  = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleTagRe   = regexp.MustCompile(`(?is)<style.*?</style>`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
	tripleNlRe   = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// ToMarkdown converts an HTML fragment to a lightly-formatted markdown
// string, preserving headers/paragraphs/lists/emphasis/quotes while
// dropping everything else. Grounded on content_extractor.py:
// convert_to_markdown.
func ToMarkdown(html string) string {
	html = scriptTagRe.ReplaceAllString(html, "")
	html = styleTagRe.ReplaceAllString(html, "")

	for _, c := range htmlConversions {
		html = c.pattern.ReplaceAllString(html, c.replacement)
	}

	text := anyTagRe.ReplaceAllString(html, "")
	text = tripleNlRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
