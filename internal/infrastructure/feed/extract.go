package feed

import (
	"regexp"
	"sync"

	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/textutil"
)

// itemExpr isolates one <item> block per match so each entry parses (and
// fails) independently of its siblings.
var itemExpr = regexp.MustCompile(`(?s)<item[\s>].*?</item>`)

type tagPattern struct {
	cdata *regexp.Regexp
	plain *regexp.Regexp
}

var (
	patternMu sync.Mutex
	patterns  = map[string]tagPattern{}
)

func patternsFor(tag string) tagPattern {
	patternMu.Lock()
	defer patternMu.Unlock()
	if p, ok := patterns[tag]; ok {
		return p
	}
	quoted := regexp.QuoteMeta(tag)
	p := tagPattern{
		cdata: regexp.MustCompile(`(?s)<` + quoted + `[^>]*>\s*<!\[CDATA\[(.*?)\]\]>\s*</` + quoted + `>`),
		plain: regexp.MustCompile(`(?s)<` + quoted + `[^>]*>(.*?)</` + quoted + `>`),
	}
	patterns[tag] = p
	return p
}

// parseItem extracts one record from an <item> block. Records missing any
// required field report !ok and are dropped by the caller.
func parseItem(block string) (domain.FeedRecord, bool) {
	record := domain.FeedRecord{
		Title:        extractField(block, "title"),
		CanonicalURL: extractField(block, "link"),
		GUID:         extractField(block, "guid"),
		PublishedAt:  extractField(block, "pubDate"),
		Excerpt:      extractField(block, "description"),
		FullContent:  extractField(block, "content:encoded"),
		Tags:         extractRepeated(block, "category"),
		Contributors: extractRepeated(block, "dc:creator"),
	}
	if record.FullContent == "" {
		record.FullContent = record.Excerpt
	}
	if !record.Valid() {
		return domain.FeedRecord{}, false
	}
	return record, true
}

// extractField returns the tag's text content: CDATA-wrapped payloads are
// unwrapped, otherwise the immediate tag boundaries are matched non-greedily
// so embedded markup stays inside the field.
func extractField(block, tag string) string {
	p := patternsFor(tag)
	if m := p.cdata.FindStringSubmatch(block); m != nil {
		return clean(m[1])
	}
	if m := p.plain.FindStringSubmatch(block); m != nil {
		return clean(m[1])
	}
	return ""
}

// extractRepeated collects repeated tags in document order from exactly one
// extraction mode: plain matching is only a fallback when no occurrence is
// CDATA-wrapped. Merging both result sets would duplicate entries.
func extractRepeated(block, tag string) []string {
	p := patternsFor(tag)
	matches := p.cdata.FindAllStringSubmatch(block, -1)
	if len(matches) == 0 {
		matches = p.plain.FindAllStringSubmatch(block, -1)
	}
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		if v := clean(m[1]); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func clean(s string) string {
	return textutil.NormalizeWhitespace(textutil.DecodeEntities(s))
}
