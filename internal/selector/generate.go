package selector

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// safeIdent reports whether s can appear in a selector without escaping.
func safeIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// Escape backslash-escapes every selector-unsafe byte in an identifier, so
// "a/b" becomes "a\/b".
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') {
			b.WriteByte(c)
		} else {
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Generate produces a CSS selector for el that matches it uniquely within
// doc. Preference order:
//
//  1. the element's own ID, when selector-safe;
//  2. its first class, when that class alone is unique in the document;
//  3. an ancestor path of tag[.classes][:nth-child(n)] segments, adding
//     :nth-child only where same-tag siblings exist, stopping early at the
//     nearest ancestor with a selector-safe ID.
func Generate(doc *html.Node, el *html.Node) string {
	if el == nil || el.Type != html.ElementNode {
		return ""
	}

	if id := GetAttr(el, "id"); safeIdent(id) {
		return "#" + id
	}

	if classes := strings.Fields(GetAttr(el, "class")); len(classes) > 0 {
		first := classes[0]
		if safeIdent(first) {
			if matches, err := QueryAll(doc, "."+first); err == nil && len(matches) == 1 {
				return "." + first
			}
		}
	}

	return pathSelector(el)
}

// pathSelector builds the ancestor path from el upward, stopping below the
// document root or early at a safely addressable ID.
func pathSelector(el *html.Node) string {
	var segs []string

	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id := GetAttr(n, "id"); safeIdent(id) && n != el {
			segs = append(segs, "#"+id)
			break
		}
		segs = append(segs, segment(n))
		if n.Data == "html" {
			break
		}
	}

	// segs were collected target-first; the selector reads root-first.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, " > ")
}

// segment renders one path part: tag, safe classes, and :nth-child when
// same-tag siblings make the bare tag ambiguous at that level.
func segment(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)

	for _, c := range strings.Fields(GetAttr(n, "class")) {
		if safeIdent(c) {
			b.WriteByte('.')
			b.WriteString(c)
		}
	}

	if sameTagSiblings(n) > 1 {
		fmt.Fprintf(&b, ":nth-child(%d)", elementIndex(n))
	}
	return b.String()
}

func sameTagSiblings(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	count := 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			count++
		}
	}
	return count
}
