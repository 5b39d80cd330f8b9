package markup

import (
	"regexp"
	"strings"
)

// Allow-list for sanitization. Fragments containing anything outside
// this set are stripped to their text content rather than rendered.
var (
	allowedTags = map[string]struct{}{
		"strong": {}, "em": {}, "del": {}, "code": {}, "a": {}, "u": {},
	}
	allowedAttrs = map[string]struct{}{
		"href": {}, "target": {}, "rel": {}, "class": {},
	}
)

var (
	tagRe  = regexp.MustCompile(`<[^>]*>`)
	attrRe = regexp.MustCompile(`([a-zA-Z-]+)="([^"]*)"`)
	// tagShapeRe matches a well-formed open or close tag with optional
	// double-quoted attributes.
	tagShapeRe = regexp.MustCompile(`^</?([a-zA-Z]+)((?:\s+[a-zA-Z-]+="[^"]*")*)\s*>$`)
)

// Sanitize validates an HTML fragment against the allow-list. A fragment
// whose every tag is allow-listed (with allow-listed attributes and safe
// href values) passes through unchanged; any violation strips the whole
// fragment to plain text content.
func Sanitize(fragment string) string {
	tags := tagRe.FindAllString(fragment, -1)
	for _, tag := range tags {
		if !tagAllowed(tag) {
			return stripTags(fragment)
		}
	}
	// A stray '<' that is not part of a tag means the fragment was not
	// produced by our substitution rules.
	if strings.Count(fragment, "<") != len(tags) {
		return stripTags(fragment)
	}
	return fragment
}

func tagAllowed(tag string) bool {
	m := tagShapeRe.FindStringSubmatch(tag)
	if m == nil {
		return false
	}
	name := strings.ToLower(m[1])
	if _, ok := allowedTags[name]; !ok {
		return false
	}
	if strings.HasPrefix(tag, "</") && m[2] != "" {
		return false
	}
	for _, attr := range attrRe.FindAllStringSubmatch(m[2], -1) {
		key := strings.ToLower(attr[1])
		if _, ok := allowedAttrs[key]; !ok {
			return false
		}
		if key == "href" && !safeHref(attr[2]) {
			return false
		}
	}
	return true
}

// safeHref rejects URL schemes that can execute script. Relative paths,
// fragments, http(s), and mailto are allowed.
func safeHref(href string) bool {
	v := strings.TrimSpace(strings.ToLower(href))
	switch {
	case v == "",
		strings.HasPrefix(v, "/"),
		strings.HasPrefix(v, "#"),
		strings.HasPrefix(v, "http://"),
		strings.HasPrefix(v, "https://"),
		strings.HasPrefix(v, "mailto:"):
		return true
	}
	// No scheme at all (e.g. "example.com/page") is fine.
	return !strings.Contains(v, ":")
}

func stripTags(fragment string) string {
	return tagRe.ReplaceAllString(fragment, "")
}
