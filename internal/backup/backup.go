package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/sprout/internal/model"
	"github.com/dukerupert/sprout/internal/reminder"
	"github.com/dukerupert/sprout/internal/store"
)

var (
	// ErrNotConfigured is returned when S3 credentials or the passphrase are missing.
	ErrNotConfigured = errors.New("backup not configured")
	// ErrNotFound is returned for an unknown backup ID.
	ErrNotFound = errors.New("backup not found")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3            S3Config
	Passphrase    string
	ScheduleHour  int
	RetentionDays int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager exports encrypted reminder snapshots to S3-compatible storage and
// restores them.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	backupStore *store.BackupStore
	reminders   *reminder.Store
	client      s3Client
	lastRunDate string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new backup manager. It is disabled unless both S3
// credentials and a passphrase are configured.
func NewManager(cfg Config, bs *store.BackupStore, rs *reminder.Store, logger *slog.Logger, callback StatusCallback) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	m := &Manager{
		cfg:         cfg,
		backupStore: bs,
		reminders:   rs,
		logger:      logger,
		callback:    callback,
		now:         time.Now,
		status:      Status{State: StateDisabled},
	}

	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		m.logger.Info("backups disabled, scheduler not started")
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// checkSchedule runs the daily backup once, in the first tick of the
// configured hour, then prunes old backups.
func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now().In(m.reminders.Location())
	if now.Hour() != m.cfg.ScheduleHour {
		return
	}
	today := now.Format("2006-01-02")

	m.mu.Lock()
	if m.lastRunDate == today {
		m.mu.Unlock()
		return
	}
	m.lastRunDate = today
	m.mu.Unlock()

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow exports, encrypts and uploads a snapshot of the reminder store.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.S3.Prefix
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConfigured
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	snap := m.reminders.Snapshot()
	filename := fmt.Sprintf("sprout-%s.json.enc", m.now().UTC().Format("20060102T150405Z"))
	s3Key := path.Join(prefix, filename)

	record, err := m.backupStore.Create(filename, s3Key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	fail := func(stage string, err error) (*model.Backup, error) {
		if uerr := m.backupStore.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "id", record.ID, "error", uerr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	plaintext, err := json.Marshal(snap)
	if err != nil {
		return fail("marshal snapshot", err)
	}
	encrypted, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return fail("encrypt", err)
	}

	if err := m.backupStore.UpdateStatus(record.ID, model.BackupStatusUploading, ""); err != nil {
		m.logger.Warn("mark backup uploading", "id", record.ID, "error", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	if err := m.backupStore.UpdateCompleted(record.ID, int64(len(encrypted)), len(snap.Reminders)); err != nil {
		return fail("record completion", err)
	}

	now := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup completed", "id", record.ID, "key", s3Key, "bytes", len(encrypted), "reminders", len(snap.Reminders))

	return m.backupStore.GetByID(record.ID)
}

// List returns the most recent backups, newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backupStore.List(limit)
}

// Restore downloads a backup, decrypts it and replaces the reminder store's
// state with its snapshot.
func (m *Manager) Restore(ctx context.Context, backupID int64) error {
	body, _, err := m.Download(ctx, backupID)
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	m.mu.RLock()
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()

	plaintext, err := Decrypt(data, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	var snap reminder.Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if err := m.reminders.Import(snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	m.logger.Info("backup restored", "id", backupID, "reminders", len(snap.Reminders))
	return nil
}

// Download streams an encrypted backup from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, ErrNotConfigured
	}

	record, err := m.backupStore.GetByID(backupID)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, 0, ErrNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	retentionDays := m.cfg.RetentionDays
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := m.now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.backupStore.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	if len(keys) > 0 {
		m.logger.Info("old backups removed", "count", len(keys))
	}

	return nil
}
