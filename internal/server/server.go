package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/sprout/internal/backup"
	"github.com/dukerupert/sprout/internal/config"
	"github.com/dukerupert/sprout/internal/handler"
	"github.com/dukerupert/sprout/internal/middleware"
	"github.com/dukerupert/sprout/internal/notify"
	"github.com/dukerupert/sprout/internal/push"
	"github.com/dukerupert/sprout/internal/reminder"
	"github.com/dukerupert/sprout/internal/store"
	ws "github.com/dukerupert/sprout/internal/websocket"
)

const (
	mutationLimit  = 60
	mutationWindow = time.Minute
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	reminders     *reminder.Store
	reminderH     *handler.ReminderHandler
	templateH     *handler.TemplateHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	pushStore     *store.PushStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger

	cancel context.CancelFunc
}

// New wires the stores, handlers and background workers and loads the
// persisted reminder state.
func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	// The hub answers searches from the reminder store, which in turn
	// reports changes to the hub.
	var reminders *reminder.Store
	hub := ws.NewHub(logger.With("component", "websocket"), func(filter, query string) any {
		return reminders.Cards(filter, query)
	}, cfg.Reminders.SearchDelay())

	notifier := notify.Multi{
		notify.NewHub(hub, cfg.Reminders.ToastDuration()),
		notify.NewLog(logger.With("component", "notify")),
	}
	reminders = reminder.NewStore(store.NewKVStore(db), notifier, hub, loc, logger.With("component", "reminder"))
	if err := reminders.Load(); err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}

	backupStore := store.NewBackupStore(db)
	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
			Prefix:    cfg.Backup.S3Prefix,
		},
		Passphrase:    cfg.Backup.Passphrase,
		ScheduleHour:  cfg.Backup.ScheduleHour,
		RetentionDays: cfg.Backup.RetentionDays,
	}, backupStore, reminders, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	})

	// Push notification service + scheduler
	pushSt := store.NewPushStore(db)
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.PushEnabled() {
		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		pushSched = push.NewScheduler(pushSvc, pushSt, reminders, cfg.Push.Interval(), logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSt, pushSvc, pushSched, logger.With("component", "push_handler"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		reminders:     reminders,
		reminderH:     handler.NewReminderHandler(reminders, logger.With("component", "reminder_handler")),
		templateH:     handler.NewTemplateHandler(reminders, logger.With("component", "template")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		pushStore:     pushSt,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}, nil
}

// Reminders returns the reminder store.
func (s *Server) Reminders() *reminder.Store {
	return s.reminders
}

// Start launches the background workers: the push scheduler, the backup
// scheduler and rate limiter cleanup.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.pushScheduler != nil {
		s.pushScheduler.Start(ctx)
	}
	s.backupManager.Start(ctx)
	go s.rateLimiter.RunCleanup(ctx, 5*time.Minute)
}

// Stop stops the background workers and waits for them to exit.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.pushScheduler != nil {
		s.pushScheduler.Stop()
	}
	s.backupManager.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Reminder API routes
	mux.HandleFunc("GET /api/reminders", s.reminderH.List)
	mux.HandleFunc("POST /api/reminders", s.reminderH.Create)
	mux.HandleFunc("GET /api/reminders/stats", s.reminderH.Stats)
	mux.HandleFunc("GET /api/reminders/cards", s.reminderH.Cards)
	mux.HandleFunc("GET /api/reminders/completed", s.reminderH.Completed)
	mux.HandleFunc("GET /api/reminders/export", s.reminderH.Export)
	mux.HandleFunc("POST /api/reminders/import", s.reminderH.Import)
	mux.HandleFunc("GET /api/reminders/{id}", s.reminderH.Get)
	mux.HandleFunc("PUT /api/reminders/{id}", s.reminderH.Update)
	mux.HandleFunc("DELETE /api/reminders/{id}", s.reminderH.Delete)
	mux.HandleFunc("POST /api/reminders/{id}/water", s.reminderH.Water)

	// Backup API routes
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("POST /api/backups", s.backupH.Run)
	mux.HandleFunc("POST /api/backups/{id}/restore", s.backupH.Restore)
	mux.HandleFunc("GET /api/backups/{id}/download", s.backupH.Download)

	// Push notification API routes
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)
	}

	// Pages and partials
	mux.HandleFunc("GET /{$}", s.templateH.Dashboard)
	mux.HandleFunc("GET /partials/reminders", s.templateH.CardList)
	mux.HandleFunc("GET /partials/stats", s.templateH.StatsPartial)

	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP, mutationLimit, mutationWindow)(mux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(limited)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"reminders": s.reminders.Stats().Total,
		"clients":   s.hub.ClientCount(),
	})
}
