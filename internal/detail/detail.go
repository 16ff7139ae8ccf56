// Package detail renders the selected element's inspector panel content:
// grouped computed styles, the box model, event-listener hints, a sanitised
// HTML preview, and a Markdown export.
package detail

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/internal/annotate"
)

//go:embed computed.js
var computedJS string

// StyleGroup is one collapsible section of computed styles.
type StyleGroup struct {
	Name  string
	Props []string
}

// Groups is the section layout of the computed styles view.
var Groups = []StyleGroup{
	{Name: "Layout", Props: []string{
		"display", "position", "top", "right", "bottom", "left",
		"float", "clear", "overflow", "box-sizing",
	}},
	{Name: "Box", Props: []string{
		"width", "height",
		"margin-top", "margin-right", "margin-bottom", "margin-left",
		"padding-top", "padding-right", "padding-bottom", "padding-left",
		"border-top-width", "border-right-width", "border-bottom-width", "border-left-width",
	}},
	{Name: "Typography", Props: []string{
		"font-family", "font-size", "font-weight", "line-height",
		"text-align", "color", "white-space",
	}},
	{Name: "Visual", Props: []string{
		"background-color", "opacity", "visibility", "z-index",
		"transform", "filter", "mix-blend-mode", "isolation", "contain",
	}},
	{Name: "Flex", Props: []string{
		"flex-direction", "flex-wrap", "justify-content", "align-items",
		"align-self", "flex-grow", "flex-shrink", "flex-basis", "gap",
	}},
}

// Entry is one property/value pair in a rendered group.
type Entry struct {
	Prop  string `json:"prop"`
	Value string `json:"value"`
}

// Section is one rendered style group; groups with no values present are
// omitted from the result.
type Section struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// ComputedProps is the union of every property the detail view and the
// stacking annotations need from the page.
func ComputedProps() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, g := range Groups {
		for _, p := range g.Props {
			add(p)
		}
	}
	for _, p := range annotate.Props {
		add(p)
	}
	return out
}

// ComputedJS builds the page expression fetching computed styles for the
// element and its ancestor chain.
func ComputedJS() string { return computedJS }

// Computed is the decoded result of the computed-styles probe.
type Computed struct {
	Element annotate.Style   `json:"element"`
	Chain   []annotate.Style `json:"chain"`
	Rect    Rect             `json:"rect"`
}

// Rect is an element's border box in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ParseComputed decodes the probe result. A null result means the element
// left the page.
func ParseComputed(data []byte) (*Computed, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("detail: element not found in page")
	}
	var c Computed
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("detail: decode computed styles: %w", err)
	}
	return &c, nil
}

// GroupStyles arranges computed values into the section layout. Properties
// absent from style are skipped; empty sections are dropped.
func GroupStyles(style annotate.Style) []Section {
	var out []Section
	for _, g := range Groups {
		var entries []Entry
		for _, p := range g.Props {
			if v, ok := style[p]; ok && v != "" {
				entries = append(entries, Entry{Prop: p, Value: v})
			}
		}
		if len(entries) > 0 {
			out = append(out, Section{Name: g.Name, Entries: entries})
		}
	}
	return out
}

// Edges holds the four sides of one box model ring, in pixels.
type Edges struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// BoxModel is the content/padding/border/margin breakdown.
type BoxModel struct {
	Content Rect  `json:"content"`
	Padding Edges `json:"padding"`
	Border  Edges `json:"border"`
	Margin  Edges `json:"margin"`
}

// ParseBoxModel derives the box model from computed styles and the border
// box rect. Content excludes padding and border on each side.
func ParseBoxModel(style annotate.Style, rect Rect) BoxModel {
	edges := func(prefix, suffix string) Edges {
		return Edges{
			Top:    px(style[prefix+"-top"+suffix]),
			Right:  px(style[prefix+"-right"+suffix]),
			Bottom: px(style[prefix+"-bottom"+suffix]),
			Left:   px(style[prefix+"-left"+suffix]),
		}
	}
	padding := edges("padding", "")
	border := edges("border", "-width")
	content := Rect{
		X:      rect.X + border.Left + padding.Left,
		Y:      rect.Y + border.Top + padding.Top,
		Width:  rect.Width - border.Left - border.Right - padding.Left - padding.Right,
		Height: rect.Height - border.Top - border.Bottom - padding.Top - padding.Bottom,
	}
	if content.Width < 0 {
		content.Width = 0
	}
	if content.Height < 0 {
		content.Height = 0
	}
	return BoxModel{
		Content: content,
		Padding: padding,
		Border:  border,
		Margin:  edges("margin", ""),
	}
}

func px(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// ListenerHints lists DOM event names the element declares inline handlers
// for (onclick, onmouseover, ...). CDP-registered listeners are not visible
// in markup; these hints cover what the mirror can prove.
func ListenerHints(el *html.Node) []string {
	var out []string
	for _, a := range el.Attr {
		name := strings.ToLower(a.Key)
		if strings.HasPrefix(name, "on") && len(name) > 2 {
			out = append(out, name[2:])
		}
	}
	return out
}

// Renderer produces the preview and export formats. Safe for concurrent
// use.
type Renderer struct {
	policy *bluemonday.Policy
	conv   *htmltomd.Converter
}

// NewRenderer builds the sanitiser policy and Markdown converter once.
func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "id").Globally()
	return &Renderer{
		policy: policy,
		conv: htmltomd.NewConverter(
			htmltomd.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Preview sanitises the element's outer HTML and truncates it for display.
// Scripts, inline handlers, and internal data attributes never reach the
// panel.
func (r *Renderer) Preview(outerHTML string, maxLen int) string {
	s := strings.TrimSpace(r.policy.Sanitize(outerHTML))
	if maxLen > 0 {
		runes := []rune(s)
		if len(runes) > maxLen {
			s = string(runes[:maxLen]) + "..."
		}
	}
	return s
}

// Markdown converts the element's outer HTML to Markdown.
func (r *Renderer) Markdown(outerHTML string) (string, error) {
	md, err := r.conv.ConvertString(outerHTML)
	if err != nil {
		return "", fmt.Errorf("detail: convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
