// Package element maintains the identity registry between opaque string
// IDs and DOM elements. Live nodes are not serialisable, so persisted
// state and events carry only IDs; this registry is the arena resolving
// them back. Entries go stale when the underlying node leaves the
// document — lookups report not-found instead of failing.
package element

import (
	"strconv"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/dominspect/idgen"
	"github.com/hazyhaar/dominspect/inspect"
	"github.com/hazyhaar/dominspect/internal/selector"
)

// Registry maps cache IDs and stable IDs to mirror nodes.
type Registry struct {
	mu        sync.Mutex
	next      int
	byCacheID map[string]string // cache ID → stable ID
	doc       *html.Node
	newStable idgen.Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byCacheID: make(map[string]string),
		newStable: idgen.Prefixed("di-", idgen.NanoID(8)),
	}
}

// SetDocument updates the mirror the registry resolves against. Old mirror
// nodes become unreachable; their stable IDs keep resolving as long as the
// element still exists in the new mirror.
func (r *Registry) SetDocument(doc *html.Node) {
	r.mu.Lock()
	r.doc = doc
	r.mu.Unlock()
}

// Cache registers an element and returns a monotonically increasing cache
// ID. Caching the same element twice yields two IDs — the cache is a
// lookup convenience, not a set.
func (r *Registry) Cache(el *html.Node) string {
	stable := r.EnsureStableID(el)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := strconv.Itoa(r.next)
	r.byCacheID[id] = stable
	return id
}

// Lookup resolves a cache ID to the element's current mirror node. A
// missing or detached element reports ok=false.
func (r *Registry) Lookup(cacheID string) (*html.Node, bool) {
	r.mu.Lock()
	stable, ok := r.byCacheID[cacheID]
	doc := r.doc
	r.mu.Unlock()
	if !ok || doc == nil {
		return nil, false
	}
	return r.ResolveStable(stable)
}

// ResolveStable finds the current mirror node carrying a stable ID. The
// node returned is from the latest mirror, never a reference into an old
// snapshot.
func (r *Registry) ResolveStable(stableID string) (*html.Node, bool) {
	r.mu.Lock()
	doc := r.doc
	r.mu.Unlock()
	if doc == nil || stableID == "" {
		return nil, false
	}
	n, err := selector.Query(doc, "["+inspect.StableIDAttr+`="`+stableID+`"]`)
	if err != nil || n == nil {
		return nil, false
	}
	return n, true
}

// EnsureStableID reads the element's stable ID, minting and attaching one
// when absent. This attribute is what keeps identity consistent across
// full tree rebuilds.
func (r *Registry) EnsureStableID(el *html.Node) string {
	if id := selector.GetAttr(el, inspect.StableIDAttr); id != "" {
		return id
	}
	id := r.newStable()
	el.Attr = append(el.Attr, html.Attribute{Key: inspect.StableIDAttr, Val: id})
	return id
}

// StableID reads the element's stable ID without minting.
func StableID(el *html.Node) string {
	return selector.GetAttr(el, inspect.StableIDAttr)
}

// Badges derives quick status markers from an element's attributes.
func Badges(el *html.Node) []string {
	var badges []string
	if selector.GetAttr(el, "hidden") != "" || has(el, "hidden") {
		badges = append(badges, "hidden")
	}
	if selector.GetAttr(el, "aria-hidden") == "true" {
		badges = append(badges, "aria-hidden")
	}
	if has(el, "disabled") {
		badges = append(badges, "disabled")
	}
	if selector.GetAttr(el, "contenteditable") == "true" {
		badges = append(badges, "editable")
	}
	if selector.GetAttr(el, "draggable") == "true" {
		badges = append(badges, "draggable")
	}
	return badges
}

func has(el *html.Node, key string) bool {
	for _, a := range el.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
