package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BlockType names the kind of interstitial served instead of a catalog page.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// shellTextLimit is the visible text length under which a page carrying a
// <noscript> element is treated as a script bootstrap.
const shellTextLimit = 200

var (
	cloudflareMarkers = "#cf-wrapper, #challenge-form, #cf-challenge-running, .cf-browser-verification"
	captchaMarkers    = ".g-recaptcha, .h-captcha, iframe[src*='captcha'], script[src*='captcha']"
)

// DetectBlock inspects a parsed page for anti-bot challenges and pages that
// only bootstrap JavaScript or redirect elsewhere.
func DetectBlock(doc *goquery.Document) BlockType {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if doc.Find(cloudflareMarkers).Length() > 0 ||
		strings.HasPrefix(title, "just a moment") ||
		strings.Contains(title, "attention required") {
		return BlockCloudflare
	}

	if doc.Find(captchaMarkers).Length() > 0 {
		return BlockCaptcha
	}

	if _, ok := RefreshTarget(doc); ok {
		return BlockJSShell
	}
	if doc.Find("noscript").Length() > 0 && len(visibleText(doc)) < shellTextLimit {
		return BlockJSShell
	}

	return BlockNone
}

// RefreshTarget returns the URL of a <meta http-equiv="refresh"> redirect.
func RefreshTarget(doc *goquery.Document) (string, bool) {
	var target string
	found := false
	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "refresh") {
			return true
		}
		found = true
		content := s.AttrOr("content", "")
		if i := strings.Index(strings.ToLower(content), "url="); i >= 0 {
			target = strings.Trim(strings.TrimSpace(content[i+len("url="):]), `'"`)
		}
		return false
	})
	return target, found
}

// visibleText is the body text without script, style and noscript content.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}
