package panel

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/dominspect/inspect"
)

// RegisterHTTP mounts the inspector control API on a chi router. events, if
// non-nil, serves the live event stream (the WebSocket hub's handler).
func (p *Panel) RegisterHTTP(r chi.Router, events http.HandlerFunc) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", p.handleState)
		r.Post("/show", p.handleShow)
		r.Post("/hide", p.handleHide)
		r.Post("/toggle", p.handleToggle)
		r.Post("/refresh", p.handleRefresh)

		r.Get("/tree", p.handleTree)
		r.Post("/tree/toggle", p.handleTreeToggle)

		r.Post("/select", p.handleSelect)
		r.Post("/selector/test", p.handleTestSelector)

		r.Get("/detail/{id}", p.handleDetail)
		r.Get("/clickability/{id}", p.handleClickability)
		r.Get("/markdown/{id}", p.handleMarkdown)

		r.Post("/highlight", p.handleHighlight)

		r.Get("/history", p.handleHistory)
		r.Delete("/history", p.handleHistoryDelete)

		r.Get("/breadcrumbs", p.handleBreadcrumbs)
		r.Post("/breadcrumbs", p.handleBreadcrumbNav)

		if events != nil {
			r.Get("/events", events)
		}
	})
}

func (p *Panel) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.logger.Warn("api: encode response", "error", err)
	}
}

func (p *Panel) handleState(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, p.State())
}

func (p *Panel) handleShow(w http.ResponseWriter, r *http.Request) {
	p.Show()
	p.writeJSON(w, http.StatusOK, visibilityResponse{Visible: true})
}

func (p *Panel) handleHide(w http.ResponseWriter, r *http.Request) {
	p.Hide()
	p.writeJSON(w, http.StatusOK, visibilityResponse{Visible: false})
}

func (p *Panel) handleToggle(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, visibilityResponse{Visible: p.Toggle()})
}

func (p *Panel) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := p.Refresh(r.Context()); err != nil {
		p.logger.Error("api: refresh", "error", err)
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}
	p.writeJSON(w, http.StatusOK, map[string]int{"rows": len(p.TreeRows())})
}

func (p *Panel) handleTree(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, p.TreeRows())
}

func (p *Panel) handleTreeToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	expanded := p.ToggleNode(req.ID)
	p.writeJSON(w, http.StatusOK, map[string]bool{"expanded": expanded})
}

func (p *Panel) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Selector == "" && req.ElementID == "" {
		http.Error(w, "selector or element_id required", http.StatusBadRequest)
		return
	}

	if req.Selector != "" {
		res, err := p.SelectBySelector(r.Context(), req.Selector)
		if err != nil {
			p.logger.Error("api: select", "selector", req.Selector, "error", err)
			http.Error(w, "select failed", http.StatusBadGateway)
			return
		}
		p.writeJSON(w, http.StatusOK, res)
		return
	}

	if err := p.SelectElement(r.Context(), req.ElementID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	p.writeJSON(w, http.StatusOK, inspect.SelectorResult{
		Success:   true,
		ElementID: req.ElementID,
		Matches:   1,
	})
}

func (p *Panel) handleTestSelector(w http.ResponseWriter, r *http.Request) {
	var req selectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Selector == "" {
		http.Error(w, "selector required", http.StatusBadRequest)
		return
	}
	p.writeJSON(w, http.StatusOK, p.TestSelector(req.Selector))
}

func (p *Panel) handleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := p.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	p.writeJSON(w, http.StatusOK, d)
}

func (p *Panel) handleClickability(w http.ResponseWriter, r *http.Request) {
	c, err := p.Clickability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	p.writeJSON(w, http.StatusOK, c)
}

func (p *Panel) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := p.ExportMarkdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	p.writeJSON(w, http.StatusOK, map[string]string{"markdown": md})
}

func (p *Panel) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Cycle {
		p.writeJSON(w, http.StatusOK, inspect.Highlight{Mode: p.CycleHighlightMode()})
		return
	}
	h := p.State().Highlight
	if req.Mode != "" {
		h.Mode = inspect.HighlightMode(req.Mode)
	}
	if req.Color != "" {
		h.Color = req.Color
	}
	if req.ZIndex != 0 {
		h.ZIndex = req.ZIndex
	}
	p.SetHighlight(h)
	p.writeJSON(w, http.StatusOK, h)
}

func (p *Panel) handleHistory(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, map[string]any{"history": p.History()})
}

func (p *Panel) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	var req selectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Selector == "" {
		http.Error(w, "selector required", http.StatusBadRequest)
		return
	}
	p.RemoveFromHistory(req.Selector)
	p.writeJSON(w, http.StatusOK, map[string]any{"history": p.History()})
}

func (p *Panel) handleBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	p.writeJSON(w, http.StatusOK, p.Breadcrumbs())
}

func (p *Panel) handleBreadcrumbNav(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := p.NavigateToBreadcrumb(r.Context(), req.Index); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.writeJSON(w, http.StatusOK, p.Breadcrumbs())
}
