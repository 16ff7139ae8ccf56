package element

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/dominspect/inspect"
)

// ClickabilityJS builds the page-side probe for one element. It samples
// nine points of the bounding box — center, four corners, four edge
// midpoints — through elementFromPoint and classifies each hit:
// the element itself (direct), one of its descendants (descendant), or an
// unrelated interceptor (foreign). Corners and midpoints are pulled one
// pixel inward so a probe on the exact edge does not fall outside.
func ClickabilityJS(stableID string) string {
	return fmt.Sprintf(`() => {
		const el = document.querySelector('[%s=%q]');
		if (!el) return JSON.stringify({element_id: %q, clickable: false, samples: []});
		const r = el.getBoundingClientRect();
		const pts = [
			["center", r.left + r.width / 2, r.top + r.height / 2],
			["top-left", r.left + 1, r.top + 1],
			["top-right", r.right - 1, r.top + 1],
			["bottom-left", r.left + 1, r.bottom - 1],
			["bottom-right", r.right - 1, r.bottom - 1],
			["top-middle", r.left + r.width / 2, r.top + 1],
			["bottom-middle", r.left + r.width / 2, r.bottom - 1],
			["left-middle", r.left + 1, r.top + r.height / 2],
			["right-middle", r.right - 1, r.top + r.height / 2],
		];
		let direct = 0;
		const samples = pts.map(([label, x, y]) => {
			if (x < 0 || y < 0 || x > window.innerWidth || y > window.innerHeight) {
				return {label, x: Math.round(x), y: Math.round(y), result: "offscreen"};
			}
			const hit = document.elementFromPoint(x, y);
			let result = "foreign";
			if (hit === el) { result = "direct"; direct++; }
			else if (hit && el.contains(hit)) { result = "descendant"; }
			return {label, x: Math.round(x), y: Math.round(y), result,
				hit_tag: hit ? hit.tagName.toLowerCase() : ""};
		});
		return JSON.stringify({element_id: %q, clickable: direct > 0, direct, samples});
	}`, inspect.StableIDAttr, stableID, stableID, stableID)
}

// ParseClickability decodes the probe's JSON result.
func ParseClickability(data []byte) (*inspect.Clickability, error) {
	var c inspect.Clickability
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("element: parse clickability: %w", err)
	}
	return &c, nil
}
