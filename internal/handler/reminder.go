package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/reminder"
)

type ReminderHandler struct {
	store  *reminder.Store
	logger *slog.Logger
}

func NewReminderHandler(s *reminder.Store, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{store: s, logger: logger}
}

// storeError maps reminder store errors onto HTTP responses.
func (h *ReminderHandler) storeError(w http.ResponseWriter, err error, fallback string) {
	var verr *reminder.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, reminder.ErrNotFound):
		writeError(w, http.StatusNotFound, "reminder not found")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// List handles GET /api/reminders?filter=&q=
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.store.Query(q.Get("filter"), q.Get("q")))
}

// Get handles GET /api/reminders/{id}
func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rem, err := h.store.Get(id)
	if err != nil {
		h.storeError(w, err, "failed to get reminder")
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// Create handles POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rem, err := h.store.Create(d)
	if err != nil {
		h.storeError(w, err, "failed to create reminder")
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

// Update handles PUT /api/reminders/{id}
func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var d model.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rem, err := h.store.Update(id, d)
	if err != nil {
		h.storeError(w, err, "failed to update reminder")
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

// Delete handles DELETE /api/reminders/{id}?confirm=true. Without the
// confirm flag the deletion is declined and the prompt is returned.
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	deleted, err := h.store.Delete(id, func(string) bool { return confirmed })
	if err != nil {
		h.storeError(w, err, "failed to delete reminder")
		return
	}
	if !deleted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "confirmation required", "prompt": reminder.DeletePrompt})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Water handles POST /api/reminders/{id}/water
func (h *ReminderHandler) Water(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.MarkWatered(id); err != nil {
		h.storeError(w, err, "failed to record watering")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "watered": true})
}

// Completed handles GET /api/reminders/completed
func (h *ReminderHandler) Completed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Completed())
}

// Stats handles GET /api/reminders/stats
func (h *ReminderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// Cards handles GET /api/reminders/cards?filter=&q=
func (h *ReminderHandler) Cards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.store.Cards(q.Get("filter"), q.Get("q")))
}

// Export handles GET /api/reminders/export
func (h *ReminderHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="sprout-reminders.json"`)
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// Import handles POST /api/reminders/import
func (h *ReminderHandler) Import(w http.ResponseWriter, r *http.Request) {
	var snap reminder.Snapshot
	if err := decodeJSON(w, r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.store.Import(snap); err != nil {
		if errors.Is(err, reminder.ErrInvalidSnapshot) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("import reminders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to import reminders")
		return
	}
	writeJSON(w, http.StatusOK, h.store.Stats())
}
