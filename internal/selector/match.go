// Package selector generates, validates and tests CSS selectors against a
// mirrored DOM document. It implements the selector subset the inspector
// itself produces, so every generated selector can be verified offline:
//
//   - tag: "div", "span"
//   - #id: "#main" (with backslash escapes: "#a\/b")
//   - .class: ".content", compounds like "div.a.b"
//   - [attr], [attr=val]
//   - :nth-child(n)
//   - combinators: descendant ("a b") and child ("a > b")
package selector

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// attrSel is one [attr] or [attr=val] condition.
type attrSel struct {
	key string
	val string // empty means presence check
	has bool   // true when val is significant
}

// compound is one selector part: tag#id.class.class[attr]:nth-child(n).
type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSel
	nth     int // 0 = no :nth-child
}

func (c compound) empty() bool {
	return c.tag == "" && c.id == "" && len(c.classes) == 0 && len(c.attrs) == 0 && c.nth == 0
}

// complexSel is a full selector: compounds joined by combinators.
// combs[i] joins parts[i] and parts[i+1]: ' ' descendant, '>' child.
type complexSel struct {
	parts []compound
	combs []byte
}

// Parse parses a selector. It is strict about characters that make a real
// querySelector throw — an unescaped '/' is the classic case (IDs
// containing slashes pasted verbatim).
func Parse(query string) (*complexSel, error) {
	p := &parser{in: query}
	sel, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}
	return sel, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) parse() (*complexSel, error) {
	var sel complexSel
	pendingComb := byte(0)

	for {
		p.skipSpace()
		if p.pos >= len(p.in) {
			break
		}
		if p.in[p.pos] == '>' {
			if len(sel.parts) == 0 || pendingComb != 0 {
				return nil, fmt.Errorf("unexpected '>' at position %d", p.pos)
			}
			pendingComb = '>'
			p.pos++
			continue
		}

		c, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		if c.empty() {
			return nil, fmt.Errorf("empty selector part at position %d", p.pos)
		}
		if len(sel.parts) > 0 {
			if pendingComb == 0 {
				pendingComb = ' '
			}
			sel.combs = append(sel.combs, pendingComb)
		}
		sel.parts = append(sel.parts, c)
		pendingComb = 0
	}

	if len(sel.parts) == 0 {
		return nil, fmt.Errorf("empty selector")
	}
	if pendingComb != 0 {
		return nil, fmt.Errorf("dangling combinator")
	}
	return &sel, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) parseCompound() (compound, error) {
	var c compound

	if ident, ok := p.tryIdent(); ok {
		c.tag = strings.ToLower(ident)
	}

	for p.pos < len(p.in) {
		switch p.in[p.pos] {
		case '#':
			p.pos++
			ident, ok := p.tryIdent()
			if !ok {
				return c, fmt.Errorf("expected identifier after '#' at position %d", p.pos)
			}
			c.id = ident
		case '.':
			p.pos++
			ident, ok := p.tryIdent()
			if !ok {
				return c, fmt.Errorf("expected identifier after '.' at position %d", p.pos)
			}
			c.classes = append(c.classes, ident)
		case '[':
			a, err := p.parseAttr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		case ':':
			n, err := p.parseNthChild()
			if err != nil {
				return c, err
			}
			c.nth = n
		case ' ', '\t', '>':
			return c, nil
		default:
			return c, fmt.Errorf("unexpected character %q at position %d", p.in[p.pos], p.pos)
		}
	}
	return c, nil
}

// tryIdent consumes a CSS identifier. A backslash escapes the next byte, so
// "a\/b" reads as the identifier "a/b".
func (p *parser) tryIdent() (string, bool) {
	var b strings.Builder
	for p.pos < len(p.in) {
		ch := p.in[p.pos]
		switch {
		case ch == '\\' && p.pos+1 < len(p.in):
			b.WriteByte(p.in[p.pos+1])
			p.pos += 2
		case ch == '-' || ch == '_' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9'):
			b.WriteByte(ch)
			p.pos++
		default:
			return b.String(), b.Len() > 0
		}
	}
	return b.String(), b.Len() > 0
}

func (p *parser) parseAttr() (attrSel, error) {
	var a attrSel
	p.pos++ // consume '['
	end := strings.IndexByte(p.in[p.pos:], ']')
	if end < 0 {
		return a, fmt.Errorf("unclosed attribute selector at position %d", p.pos)
	}
	body := p.in[p.pos : p.pos+end]
	p.pos += end + 1

	if eq := strings.IndexByte(body, '='); eq >= 0 {
		a.key = strings.TrimSpace(body[:eq])
		a.val = strings.Trim(strings.TrimSpace(body[eq+1:]), `"'`)
		a.has = true
	} else {
		a.key = strings.TrimSpace(body)
	}
	if a.key == "" {
		return a, fmt.Errorf("empty attribute selector")
	}
	return a, nil
}

func (p *parser) parseNthChild() (int, error) {
	const prefix = ":nth-child("
	if !strings.HasPrefix(p.in[p.pos:], prefix) {
		return 0, fmt.Errorf("unsupported pseudo-class at position %d", p.pos)
	}
	p.pos += len(prefix)
	end := strings.IndexByte(p.in[p.pos:], ')')
	if end < 0 {
		return 0, fmt.Errorf("unclosed :nth-child at position %d", p.pos)
	}
	num := strings.TrimSpace(p.in[p.pos : p.pos+end])
	p.pos += end + 1

	n := 0
	for _, ch := range num {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("non-numeric :nth-child argument %q", num)
		}
		n = n*10 + int(ch-'0')
	}
	if n < 1 {
		return 0, fmt.Errorf(":nth-child argument must be >= 1")
	}
	return n, nil
}

// QueryAll returns all elements under root matching the selector, in
// document order.
func QueryAll(root *html.Node, query string) ([]*html.Node, error) {
	sel, err := Parse(query)
	if err != nil {
		return nil, err
	}

	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && matchesFrom(n, sel, len(sel.parts)-1, root) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results, nil
}

// Query returns the first match or nil.
func Query(root *html.Node, query string) (*html.Node, error) {
	all, err := QueryAll(root, query)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// matchesFrom matches right to left: compound i must match n, and the
// prefix must match an ancestor according to the combinator.
func matchesFrom(n *html.Node, sel *complexSel, i int, root *html.Node) bool {
	if !matchCompound(n, sel.parts[i]) {
		return false
	}
	if i == 0 {
		return true
	}
	switch sel.combs[i-1] {
	case '>':
		p := parentElement(n, root)
		return p != nil && matchesFrom(p, sel, i-1, root)
	default:
		for p := parentElement(n, root); p != nil; p = parentElement(p, root) {
			if matchesFrom(p, sel, i-1, root) {
				return true
			}
		}
		return false
	}
}

func parentElement(n, root *html.Node) *html.Node {
	if n == root {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
		if p == root {
			return nil
		}
	}
	return nil
}

func matchCompound(n *html.Node, c compound) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && c.tag != "*" && n.Data != c.tag {
		return false
	}
	if c.id != "" && GetAttr(n, "id") != c.id {
		return false
	}
	for _, cls := range c.classes {
		if !hasClass(n, cls) {
			return false
		}
	}
	for _, a := range c.attrs {
		if a.has {
			if GetAttr(n, a.key) != a.val {
				return false
			}
		} else if !hasAttr(n, a.key) {
			return false
		}
	}
	if c.nth > 0 && elementIndex(n) != c.nth {
		return false
	}
	return true
}

// elementIndex is the 1-based position of n among its element siblings —
// the :nth-child semantics (all elements count, not just same-tag ones).
func elementIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(GetAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// GetAttr returns the value of an attribute on a node.
func GetAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
