package browser

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"
)

//go:embed snapshot.js
var snapshotJS string

// Page wraps a Rod page with inspector setup: stealth, resource blocking,
// and DOM mirroring. Every element in the live page gets a stable ID
// attribute on first snapshot, so identity survives re-parsing.
type Page struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenPage creates a new page and navigates to the URL.
func OpenPage(ctx context.Context, mgr *Manager, pageURL string) (*Page, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Page{Page: page, PageURL: pageURL, manager: mgr}, nil
}

// AttachPage adopts an already open page, for inspecting whatever the user
// is currently looking at. With a URL substring it picks the first matching
// page; empty adopts the first page.
func AttachPage(ctx context.Context, mgr *Manager, urlContains string) (*Page, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	pages, err := b.Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if urlContains == "" || strings.Contains(info.URL, urlContains) {
			return &Page{Page: p.Context(ctx), PageURL: info.URL, manager: mgr}, nil
		}
	}
	return nil, fmt.Errorf("browser: no page matching %q", urlContains)
}

// Snapshot stamps a stable ID onto every unmarked element and returns the
// parsed document. The returned tree is a mirror: detached from the live
// page, safe to walk concurrently, re-taken after any page change.
func (p *Page) Snapshot(ctx context.Context) (*html.Node, error) {
	res, err := p.Page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("browser: parse snapshot: %w", err)
	}
	return doc, nil
}

// Eval runs a JS function expression in the page.
func (p *Page) Eval(js string, jsArgs ...any) (*proto.RuntimeRemoteObject, error) {
	res, err := p.Page.Eval(js, jsArgs...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EvalString runs a JS function expression and returns its string result.
func (p *Page) EvalString(ctx context.Context, js string, jsArgs ...any) (string, error) {
	res, err := p.Page.Context(ctx).Eval(js, jsArgs...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// OuterHTML returns the live outer HTML of the element with the given
// stable ID.
func (p *Page) OuterHTML(ctx context.Context, stableID string) (string, error) {
	s, err := p.EvalString(ctx, `(id) => {
		const el = document.querySelector('[data-di-id="' + id + '"]');
		return el ? el.outerHTML : '';
	}`, stableID)
	if err != nil {
		return "", fmt.Errorf("browser: outer html: %w", err)
	}
	if s == "" {
		return "", fmt.Errorf("browser: element %s not found in page", stableID)
	}
	return s, nil
}

// ScrollIntoView scrolls the element with the given stable ID into view.
func (p *Page) ScrollIntoView(ctx context.Context, stableID string) error {
	_, err := p.Page.Context(ctx).Eval(`(id) => {
		const el = document.querySelector('[data-di-id="' + id + '"]');
		if (el) el.scrollIntoView({block: 'center'});
	}`, stableID)
	if err != nil {
		return fmt.Errorf("browser: scroll into view: %w", err)
	}
	return nil
}

// Close closes the page.
func (p *Page) Close() error {
	if p.Page != nil {
		return p.Page.Close()
	}
	return nil
}
