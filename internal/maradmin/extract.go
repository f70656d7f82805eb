package maradmin

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stonecoder-actual/Stone-Slack-Alerts/internal/rss"
)

const (
	maxMessageChars  = 20000
	maxFallbackChars = 12000
)

// Markers where the message text starts, tried in order.
var startMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bMARADMINS?\s*:\s*\d+/\d+\b`),
	regexp.MustCompile(`(?i)\bMARADMIN\s+\d+/\d+\b`),
	regexp.MustCompile(`(?i)\bMSGID/GENADMIN\b`),
}

// dtgLine matches a message date-time group header such as "R 301230Z DEC 25".
var dtgLine = regexp.MustCompile(`(?im)^\s*r\s+\d{6}z\b`)

// looksLikeFullMessage reports whether an RSS summary already carries the
// message body.
func looksLikeFullMessage(summary string) bool {
	t := strings.ToLower(summary)
	if strings.TrimSpace(t) == "" {
		return false
	}
	return strings.Contains(t, "maradmin") ||
		strings.Contains(t, "msgid/genadmin") ||
		dtgLine.MatchString(rss.PlainText(summary))
}

// ExtractMessage returns the message text of a marines.mil message page:
// the page text from the first MARADMIN marker, or its beginning when no
// marker is found.
func ExtractMessage(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	html, err := root.Html()
	if err != nil {
		return ""
	}
	return cutAtMarker(rss.PlainText(html))
}

func cutAtMarker(text string) string {
	for _, re := range startMarkers {
		if loc := re.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(rss.Truncate(text[loc[0]:], maxMessageChars))
		}
	}
	return rss.Truncate(text, maxFallbackChars)
}
