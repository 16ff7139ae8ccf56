// Package annotate computes per-element display annotations from computed
// style: z-index, effective z-index, stacking layer, and stacking-context
// membership. It is a pure function of style values — fetching those values
// from the live page is the caller's concern, which keeps the rules
// testable offline.
package annotate

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/dominspect/inspect"
)

// Props lists every computed-style property the annotator reads. Style
// sources should fetch exactly this set per element.
var Props = []string{
	"position", "z-index", "opacity", "transform", "filter",
	"isolation", "mix-blend-mode", "contain",
}

// Style is one element's computed style, keyed by property name. Missing
// keys read as the property's initial value.
type Style map[string]string

func (s Style) get(prop, initial string) string {
	if v, ok := s[prop]; ok && v != "" {
		return v
	}
	return initial
}

// IsStackingContext reports whether an element with this style establishes
// a stacking context, and the rules that triggered. Any single rule
// qualifies.
func IsStackingContext(s Style) (bool, []string) {
	var reasons []string

	pos := s.get("position", "static")
	z := s.get("z-index", "auto")
	if pos != "static" && z != "auto" {
		reasons = append(reasons, "positioned with z-index "+z)
	}
	if op := s.get("opacity", "1"); op != "1" {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f < 1 {
			reasons = append(reasons, "opacity "+op)
		}
	}
	if t := s.get("transform", "none"); t != "none" {
		reasons = append(reasons, "transform")
	}
	if f := s.get("filter", "none"); f != "none" {
		reasons = append(reasons, "filter")
	}
	if s.get("isolation", "auto") == "isolate" {
		reasons = append(reasons, "isolation: isolate")
	}
	if b := s.get("mix-blend-mode", "normal"); b != "normal" {
		reasons = append(reasons, "mix-blend-mode "+b)
	}
	if c := s.get("contain", "none"); containsPaintOrLayout(c) {
		reasons = append(reasons, "contain "+c)
	}

	return len(reasons) > 0, reasons
}

func containsPaintOrLayout(contain string) bool {
	for _, tok := range strings.Fields(contain) {
		switch tok {
		case "layout", "paint", "strict", "content":
			return true
		}
	}
	return false
}

// EffectiveZIndex resolves the z-index that actually orders the element:
// walk from the element upward until the nearest explicit z-index or the
// first stacking-context boundary, whichever comes first — a z-index is
// only meaningful relative to its containing stacking context. The chain
// is the element's style followed by its ancestors' styles, nearest first.
func EffectiveZIndex(chain []Style) string {
	for i, s := range chain {
		if z := s.get("z-index", "auto"); z != "auto" {
			return z
		}
		// Crossing into an ancestor that establishes its own context
		// ends the walk: outer z-indexes no longer apply.
		if i > 0 {
			if ctx, _ := IsStackingContext(s); ctx {
				return "auto"
			}
		}
	}
	return "auto"
}

// Annotate builds the annotation list for one element. chain is the
// element's style followed by ancestor styles, nearest first.
func Annotate(chain []Style) []inspect.Annotation {
	if len(chain) == 0 {
		return nil
	}
	own := chain[0]

	var anns []inspect.Annotation

	if z := own.get("z-index", "auto"); z != "auto" {
		anns = append(anns, inspect.Annotation{Type: "z-index", Value: z})
	}

	if eff := EffectiveZIndex(chain); eff != "auto" {
		anns = append(anns, inspect.Annotation{Type: "effective-z-index", Value: eff})
	}

	if ctx, reasons := IsStackingContext(own); ctx {
		anns = append(anns, inspect.Annotation{
			Type:    "stacking-context",
			Value:   "yes",
			Reasons: reasons,
		})
	}

	anns = append(anns, inspect.Annotation{Type: "layer", Value: layer(chain)})
	return anns
}

// layer names the element's place in the stacking order: "root" when no
// ancestor establishes a context, otherwise the nearest context's trigger.
func layer(chain []Style) string {
	for i := 1; i < len(chain); i++ {
		if ctx, reasons := IsStackingContext(chain[i]); ctx {
			return "in context (" + reasons[0] + ")"
		}
	}
	return "root"
}
