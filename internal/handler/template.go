package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/reminder"
)

//go:embed templates/*.html
var templateFS embed.FS

// filterTab is one entry in the filter bar.
type filterTab struct {
	Value  string
	Label  string
	Active bool
}

var filterValues = []model.PlantType{
	model.PlantVegetables, model.PlantFruits, model.PlantFlowers, model.PlantSucculents,
	model.PlantHerbs, model.PlantTrees, model.PlantIndoor, model.PlantOther,
}

func filterTabs(active string) []filterTab {
	if active == "" {
		active = "all"
	}
	tabs := []filterTab{
		{Value: "all", Label: "All", Active: active == "all"},
		{Value: "today", Label: "Today", Active: active == "today"},
	}
	for _, p := range filterValues {
		tabs = append(tabs, filterTab{Value: string(p), Label: p.Label(), Active: active == string(p)})
	}
	return tabs
}

// TemplateHandler renders the server-side reminder views: the full page and
// the card list and counter partials that clients swap in after a change.
type TemplateHandler struct {
	store     *reminder.Store
	templates *template.Template
	logger    *slog.Logger
}

func NewTemplateHandler(s *reminder.Store, logger *slog.Logger) *TemplateHandler {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/*.html"))
	return &TemplateHandler{store: s, templates: tmpl, logger: logger}
}

// Dashboard handles GET /
func (h *TemplateHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, query := q.Get("filter"), q.Get("q")

	data := map[string]any{
		"Title":   "Sprout",
		"Stats":   h.store.Stats(),
		"Filters": filterTabs(filter),
		"Query":   query,
		"Cards":   h.store.Cards(filter, query),
	}
	h.render(w, "layout.html", data)
}

// CardList handles GET /partials/reminders?filter=&q=
func (h *TemplateHandler) CardList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.renderPartial(w, "card-list", map[string]any{"Cards": h.store.Cards(q.Get("filter"), q.Get("q"))})
}

// StatsPartial handles GET /partials/stats
func (h *TemplateHandler) StatsPartial(w http.ResponseWriter, r *http.Request) {
	h.renderPartial(w, "stats", h.store.Stats())
}

func (h *TemplateHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (h *TemplateHandler) renderPartial(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template error", "template", name, "error", err)
		fmt.Fprintf(w, `<div class="alert alert-error">Template error</div>`)
	}
}
