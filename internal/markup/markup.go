// Package markup parses a block's display text into a safe sequence of
// renderable spans: sanitized inline-HTML fragments alternating with
// wiki-link references.
package markup

import (
	"regexp"
	"strings"
)

// Resolver looks up a page title case-insensitively against the current
// page-title snapshot.
type Resolver interface {
	Resolve(title string) (id int64, ok bool)
}

// SpanKind discriminates the two span variants.
type SpanKind string

const (
	// KindMarkup is a sanitized inline-HTML fragment.
	KindMarkup SpanKind = "markup"
	// KindWikiLink is a [[Title]] reference, resolved or dead.
	KindWikiLink SpanKind = "wikilink"
)

// Span is one renderable unit of a block's text.
type Span struct {
	Kind SpanKind `json:"kind"`

	// HTML carries the sanitized fragment for KindMarkup spans.
	HTML string `json:"html,omitempty"`

	// Wiki-link fields, set for KindWikiLink spans.
	Title    string `json:"title,omitempty"`
	Resolved bool   `json:"resolved,omitempty"`
	TargetID int64  `json:"target_id,omitempty"`
}

var wikiTokenRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// inline substitution rules, applied in this exact order against the
// escaped text. Later rules operate on the output of earlier ones; the
// ordering is load-bearing and must not change, or existing content
// would render differently.
var inlineRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`&lt;u&gt;(.*?)&lt;/u&gt;`), `<u>${1}</u>`},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), `<strong>${1}</strong>`},
	{regexp.MustCompile(`\*(.*?)\*`), `<em>${1}</em>`},
	{regexp.MustCompile(`~~(.*?)~~`), `<del>${1}</del>`},
	{regexp.MustCompile("`([^`]+)`"), `<code class="inline-code">${1}</code>`},
	{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), `<a href="${2}" target="_blank" rel="noopener noreferrer" class="external-link">${1}</a>`},
}

// Render splits text on [[...]] tokens and produces the span sequence.
// Outside segments are escaped, styled, and sanitized; bracket captures
// become wiki-link spans resolved against res (nil res leaves every link
// unresolved). Render never fails: malformed markup degrades to literal
// text.
func Render(text string, res Resolver) []Span {
	var spans []Span

	last := 0
	for _, loc := range wikiTokenRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			spans = appendMarkup(spans, text[last:loc[0]])
		}
		title := text[loc[2]:loc[3]]
		spans = append(spans, wikiSpan(title, res))
		last = loc[1]
	}
	if last < len(text) || len(spans) == 0 {
		spans = appendMarkup(spans, text[last:])
	}
	return spans
}

func appendMarkup(spans []Span, segment string) []Span {
	return append(spans, Span{Kind: KindMarkup, HTML: FormatInline(segment)})
}

func wikiSpan(title string, res Resolver) Span {
	s := Span{Kind: KindWikiLink, Title: title}
	if res != nil {
		if id, ok := res.Resolve(title); ok {
			s.Resolved = true
			s.TargetID = id
		}
	}
	return s
}

// FormatInline escapes a text segment, applies the inline substitution
// rules in order, and sanitizes the result against the tag allow-list.
// The escape-first step is what prevents markup injection; the sanitize
// step is a hard security invariant on top of it.
func FormatInline(text string) string {
	escaped := escapeHTML(text)
	for _, rule := range inlineRules {
		escaped = rule.re.ReplaceAllString(escaped, rule.repl)
	}
	return Sanitize(escaped)
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
