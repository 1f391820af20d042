package scrape

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDetectBlock(t *testing.T) {
	catalog := "<p>" + strings.Repeat("Catálogo de nacionalidades del sector salud. ", 10) + "</p>"

	tests := []struct {
		name string
		html string
		want BlockType
	}{
		{"cloudflare title", "<html><head><title>Just a moment...</title></head><body></body></html>", BlockCloudflare},
		{"cloudflare form", `<body><form id="challenge-form" action="/cdn-cgi"></form></body>`, BlockCloudflare},
		{"recaptcha widget", `<body><div class="g-recaptcha" data-sitekey="x"></div></body>`, BlockCaptcha},
		{"captcha iframe", `<body><iframe src="https://hcaptcha.com/captcha/v1"></iframe></body>`, BlockCaptcha},
		{"meta refresh", `<head><meta http-equiv="Refresh" content="0; url=/nuevo/"></head>`, BlockJSShell},
		{"noscript bootstrap", `<body><noscript>Habilite JavaScript</noscript><div id="app"></div><script>boot()</script></body>`, BlockJSShell},
		{"noscript on real page", `<body><noscript>Habilite JavaScript</noscript>` + catalog + `</body>`, BlockNone},
		{"catalog page", `<body><a href="nacionalidades.zip">Descargar</a>` + catalog + `</body>`, BlockNone},
		{"word captcha in text", `<body><p>captcha</p>` + catalog + `</body>`, BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBlock(mustDoc(t, tt.html)))
		})
	}
}

func TestRefreshTarget(t *testing.T) {
	target, ok := RefreshTarget(mustDoc(t, `<meta http-equiv="refresh" content="5;URL='/contenidos/nuevo.html'">`))
	assert.True(t, ok)
	assert.Equal(t, "/contenidos/nuevo.html", target)

	target, ok = RefreshTarget(mustDoc(t, `<meta http-equiv="refresh" content="30">`))
	assert.True(t, ok)
	assert.Empty(t, target)

	_, ok = RefreshTarget(mustDoc(t, `<meta http-equiv="content-type" content="text/html">`))
	assert.False(t, ok)
}
