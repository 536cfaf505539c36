// Package textutil holds the pure text transforms shared by the feed parser,
// the summarizer prompt builder, and artifact slug derivation.
package textutil

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	nonAlnumExpr   = regexp.MustCompile(`[^a-z0-9]+`)
	slugExpr       = regexp.MustCompile(`^[a-z0-9-]+$`)
	tagExpr        = regexp.MustCompile(`<[^>]*>`)
	whitespaceExpr = regexp.MustCompile(`[\s\p{Zs}]+`)
	decEntityExpr  = regexp.MustCompile(`&#([0-9]+);`)
	hexEntityExpr  = regexp.MustCompile(`&#[xX]([0-9a-fA-F]+);`)
	blockEndExpr   = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/h[1-6])[^>]*>`)
)

// namedEntities is the fixed decode table. It covers the entities the source
// feed actually emits, including the common accented Latin characters.
var namedEntities = map[string]string{
	"&lt;":     "<",
	"&gt;":     ">",
	"&quot;":   `"`,
	"&apos;":   "'",
	"&nbsp;":   " ",
	"&ndash;":  "–",
	"&mdash;":  "—",
	"&hellip;": "…",
	"&lsquo;":  "‘",
	"&rsquo;":  "’",
	"&ldquo;":  "“",
	"&rdquo;":  "”",
	"&copy;":   "©",
	"&reg;":    "®",
	"&trade;":  "™",
	"&agrave;": "à",
	"&aacute;": "á",
	"&acirc;":  "â",
	"&auml;":   "ä",
	"&ccedil;": "ç",
	"&egrave;": "è",
	"&eacute;": "é",
	"&ecirc;":  "ê",
	"&iacute;": "í",
	"&icirc;":  "î",
	"&ntilde;": "ñ",
	"&oacute;": "ó",
	"&ocirc;":  "ô",
	"&ouml;":   "ö",
	"&uacute;": "ú",
	"&uuml;":   "ü",
}

// Slugify derives a stable URL-safe identifier from arbitrary text:
// lower-case, every run of non-alphanumerics collapses to one hyphen,
// leading/trailing hyphens stripped.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumExpr.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ExtractSlug pulls the trailing path segment out of a blog post URL. Only
// URLs on a blog subdomain qualify; anything else yields "" so the caller
// falls back to a title-derived slug.
func ExtractSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(u.Hostname(), "blog.") {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug := segments[len(segments)-1]
	if !slugExpr.MatchString(slug) {
		return ""
	}
	return slug
}

// DecodeEntities resolves numeric (decimal and hex) character references and
// the fixed named-entity table. Numeric references decode first so that an
// escaped ampersand (&amp;#233;) stays escaped rather than double-decoding.
func DecodeEntities(s string) string {
	s = hexEntityExpr.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseInt(m[3:len(m)-1], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	s = decEntityExpr.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseInt(m[2:len(m)-1], 10, 32)
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	for entity, replacement := range namedEntities {
		s = strings.ReplaceAll(s, entity, replacement)
	}
	// &amp; last, otherwise it would re-enable the other replacements.
	return strings.ReplaceAll(s, "&amp;", "&")
}

// NormalizeWhitespace trims the string and collapses internal whitespace
// runs (including newlines) to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

// TruncateAtWord cuts s to at most limit bytes at the last whitespace
// boundary and appends an ellipsis. Strings within the limit pass through.
func TruncateAtWord(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndexAny(cut, " \t\n\r"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t\n\r") + "..."
}

// StripHTML renders markup as plain text: tags removed, entities decoded,
// whitespace collapsed. Used to spend the summarizer's character budget on
// signal instead of markup.
func StripHTML(markup string) string {
	if markup == "" {
		return ""
	}
	// Block boundaries become spaces so adjacent paragraphs don't fuse.
	markup = blockEndExpr.ReplaceAllString(markup, " ")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return NormalizeWhitespace(DecodeEntities(tagExpr.ReplaceAllString(markup, " ")))
	}
	doc.Find("script,style").Remove()
	return NormalizeWhitespace(doc.Text())
}
