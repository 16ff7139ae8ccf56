package inspect

// StableIDAttr is the data attribute dominspect writes onto live elements
// so the same physical node keeps one identity across tree rebuilds and
// state events. State never references elements any other way.
const StableIDAttr = "data-di-id"

// OverlayAttr marks DOM nodes the inspector injected itself (highlight
// overlay, picker chrome). They are excluded from mirroring.
const OverlayAttr = "data-di-overlay"
