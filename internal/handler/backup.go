package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/sprout/internal/backup"
	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/store"
)

const defaultBackupListLimit = 20

type BackupHandler struct {
	manager     *backup.Manager
	backupStore *store.BackupStore
	logger      *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, backupStore: bs, logger: logger}
}

func (h *BackupHandler) backupError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
	case errors.Is(err, backup.ErrNotFound):
		writeError(w, http.StatusNotFound, "backup not found")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	latest, err := h.backupStore.LatestCompleted()
	if err != nil {
		h.backupError(w, err, "failed to load backup status")
		return
	}
	total, err := h.backupStore.TotalSize()
	if err != nil {
		h.backupError(w, err, "failed to load backup status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      h.manager.Status(),
		"latest":      latest,
		"total_bytes": total,
	})
}

// Run handles POST /api/backups
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	b, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.backupError(w, err, "backup failed")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// List handles GET /api/backups?limit=
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultBackupListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	backups, err := h.manager.List(limit)
	if err != nil {
		h.backupError(w, err, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Restore handles POST /api/backups/{id}/restore
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.manager.Restore(r.Context(), id); err != nil {
		h.backupError(w, err, "restore failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": id})
}

// Download handles GET /api/backups/{id}/download. The body is the encrypted
// backup as stored.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.backupError(w, err, "download failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="sprout-backup-%d.json.enc"`, id))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "id", id, "error", err)
	}
}
