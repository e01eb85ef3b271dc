package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

// nonContentExtensions matches file extensions that are never article
// bodies: images, video, audio, archives, office docs, stylesheets,
// scripts, feeds. Grounded on url_utils.py's NON_CONTENT_EXTENSIONS.
var nonContentExtensions = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|bmp|svg|webp|ico|mp4|avi|mov|wmv|flv|webm|mp3|wav|ogg|flac|zip|rar|tar|gz|7z|doc|docx|xls|xlsx|ppt|pptx|pdf|css|js|json|xml|rss|atom)(\?.*)?$`)

// socialHosts matches known social-media hostnames.
var socialHosts = regexp.MustCompile(`(?i)(facebook\.com|twitter\.com|x\.com|instagram\.com|linkedin\.com|youtube\.com|youtu\.be|tiktok\.com|pinterest\.com)`)

// staticMediaPrefixes are host prefixes that indicate a CDN/static-asset
// subdomain rather than an article page.
var staticMediaPrefixes = []string{
	"images.", "img.", "cdn.", "static.", "image.", "media.", "assets.",
	"videos.", "video.", "pics.", "photos.", "thumbs.", "thumbnail.",
	"mcdn.",
}

// staticMediaHostSubstrings are CDN hostnames matched anywhere, not only
// as a prefix (lura.live, cloudfront.net, etc.).
var staticMediaHostSubstrings = []string{
	"lura.live", "cloudfront.net", "akamai.net", "fastly.net",
	"cloudinary.com", "foxtv.", "q13fox.",
}

// skipQueryParams are query-string markers that indicate a non-canonical
// view of an article (print view, share link, sorted/filtered listing).
var skipQueryParams = []string{
	"print=", "share=", "format=", "output=", "view=", "action=",
	"filter=", "sort=", "search=", "query=", "page=", "ref=",
}

// socialSharingPatterns match share-widget URLs across hosts.
var socialSharingPatterns = []string{
	"/sharer/", "/share?", "/share-offsite/", "/facebook/", "/twitter/",
	"/linkedin/", "/pinterest/", "/youtube/", "linkedin.com/sharing",
}

// sectionPaths are section-root paths that are never themselves articles,
// though a path prefixed by one of these plus a further segment is allowed.
var sectionPaths = []string{
	"/live", "/news", "/sports", "/weather", "/shows", "/about",
	"/contact", "/search", "/tag", "/category",
}

// govSkipPaths are exact-match-only path rejections applied to .gov hosts
// that don't qualify for the /city-news/ allowance.
var govSkipPaths = []string{
	"/about", "/contact", "/departments", "/directory", "/employment",
	"/careers", "/agendas", "/minutes", "/meetings", "/calendar",
	"/forms", "/documents", "/faq", "/links", "/sitemap",
}

// nonArticlePaths are prefix-or-exact rejected paths covering admin,
// legal, account, and marketing pages.
var nonArticlePaths = []string{
	"/about", "/about-us", "/contact", "/contact-us", "/privacy",
	"/privacy-policy", "/terms", "/terms-of-service", "/careers",
	"/jobs", "/subscribe", "/subscription", "/newsletter", "/advertise",
	"/advertise-with-us", "/login", "/signin", "/signup", "/register",
	"/account", "/cart", "/checkout", "/sitemap", "/robots.txt",
	"/wp-admin", "/wp-login", "/wp-json", "/xmlrpc.php", "/feed",
	"/feeds", "/rss", "/author", "/authors", "/staff", "/team",
	"/faq", "/help", "/support", "/donate", "/events", "/calendar",
	"/directory", "/classifieds", "/obituaries",
}

// cdnAllowPrefixes permit a subdomain that doesn't match the base domain
// when it looks like a content CDN the same publisher controls.
var cdnAllowPrefixes = []string{"cdn.", "media.", "assets.", "img.", "images."}

// IsValidArticleURL decides whether a candidate link should be followed,
// per the 11-rule ordered cascade of spec §4.1. Two escape hatches
// (civicalerts.aspx, campaign-archive.com) unconditionally accept.
func IsValidArticleURL(rawURL, baseURL string) bool {
	lower := strings.ToLower(rawURL)

	// Escape hatches override everything else.
	if strings.Contains(lower, "civicalerts.aspx") {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	if strings.Contains(host, "campaign-archive.com") {
		return true
	}

	// 1. scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	// 2. empty/root path or fragment present
	path := u.Path
	if path == "" || path == "/" || u.Fragment != "" {
		return false
	}

	// 3. non-content file extension
	if nonContentExtensions.MatchString(path) {
		return false
	}

	// 4. static/media subdomain
	bareHost := strings.TrimPrefix(host, "www.")
	for _, prefix := range staticMediaPrefixes {
		if strings.HasPrefix(bareHost, prefix) {
			return false
		}
	}
	for _, sub := range staticMediaHostSubstrings {
		if strings.Contains(bareHost, sub) {
			return false
		}
	}

	// 5. skip query params
	lowerQuery := strings.ToLower(u.RawQuery)
	for _, p := range skipQueryParams {
		if strings.Contains(lowerQuery, p) {
			return false
		}
	}

	// 6. social sharing pattern
	for _, p := range socialSharingPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}

	// 7. social host
	if socialHosts.MatchString(host) {
		return false
	}

	// 8. section root (exact match only; a further segment is allowed)
	trimmedPath := strings.TrimSuffix(path, "/")
	for _, section := range sectionPaths {
		if trimmedPath == section {
			return false
		}
	}

	// 9. .gov special handling
	if strings.Contains(host, ".gov") {
		segments := nonEmptySegments(trimmedPath)
		if strings.HasPrefix(trimmedPath, "/city-news/") && len(segments) >= 2 {
			return true
		}
		for _, p := range govSkipPaths {
			if trimmedPath == p {
				return false
			}
		}
	}

	// 10. non-article path, prefix or exact
	for _, p := range nonArticlePaths {
		if trimmedPath == p || strings.HasPrefix(trimmedPath, p+"/") {
			return false
		}
	}

	// 11. domain match
	if baseURL != "" {
		baseU, err := url.Parse(baseURL)
		if err == nil {
			baseDomain := strings.TrimPrefix(strings.ToLower(baseU.Host), "www.")
			if baseDomain != "" {
				sameOrSub := bareHost == baseDomain || strings.HasSuffix(bareHost, "."+baseDomain)
				if !sameOrSub {
					isCDN := false
					for _, p := range cdnAllowPrefixes {
						if strings.Contains(bareHost, p) {
							isCDN = true
							break
						}
					}
					if !isCDN {
						return false
					}
				}
			}
		}
	}

	return true
}

func nonEmptySegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// nonNewsDomains are obvious non-news destinations filtered before
// extraction is even attempted (source_processor.py's early URL-only
// filter via is_meaningful_content).
var nonNewsDomains = []string{
	"apps.apple.com", "play.google.com", "chrome.google.com",
	"itunes.apple.com", "music.apple.com",
	"github.com", "gitlab.com", "bitbucket.org",
	"linkedin.com", "instagram.com", "pinterest.com",
	"youtube.com", "youtu.be", "vimeo.com",
	"amazon.com", "ebay.com", "etsy.com",
	"wikipedia.org", "wikimedia.org",
}

// nonNewsPathPatterns are substrings that mark a URL as obviously not an
// article (feeds, sitemaps, API endpoints), checked in addition to — not
// instead of — IsValidArticleURL.
var nonNewsPathPatterns = []string{
	"/privacy-policy", "/privacy", "/terms-of-service", "/terms",
	"/contact-us", "/contact", "/about-us", "/about",
	"/advertise-with-us", "/advertise",
	"/sitemap", "/robots.txt", ".xml", ".json",
	"/feed", "/rss", "/feeds/", ".rss", ".atom",
	"/api/", "/wp-json/", "/xmlrpc.php",
}

// IsMeaningful applies the cheap URL-pattern pre-filter used by the SOURCE
// pipeline right before extraction (spec SPEC_FULL §12, grounded on
// content_extractor.py:is_meaningful_content). It runs IsValidArticleURL
// first, then a second, coarser pass over obvious non-news domains and
// paths so clearly-bad links never reach the extractor.
func IsMeaningful(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	baseURL := u.Scheme + "://" + u.Host
	if !IsValidArticleURL(rawURL, baseURL) {
		return false
	}

	lower := strings.ToLower(rawURL)
	domain := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for _, d := range nonNewsDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return false
		}
	}
	for _, p := range nonNewsPathPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}
