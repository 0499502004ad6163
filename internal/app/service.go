package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"chatdesk/internal/auth"
	"chatdesk/internal/config"
	"chatdesk/internal/export"
	"chatdesk/internal/store"
)

// dataStore is the tenant-scoped query layer the service reads from.
type dataStore interface {
	Ping(ctx context.Context, tenant store.Tenant) error
	ListSessions(ctx context.Context, tenant store.Tenant, limit int) ([]store.SessionSummary, error)
	ListMessages(ctx context.Context, tenant store.Tenant, sessionID string) ([]store.ChatMessage, error)
	ExportRows(ctx context.Context, tenant store.Tenant, sessionID string) ([]store.ExportRow, error)
}

// archiver keeps a best-effort copy of generated exports.
type archiver interface {
	Archive(ctx context.Context, tenant store.Tenant, result *export.Result) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	creds    auth.Credentials
	archiver archiver
}

func New(cfg config.Config, dataStore dataStore) *Service {
	return &Service{
		cfg:   cfg,
		store: dataStore,
		creds: auth.Credentials{
			Username:     cfg.Username,
			Password:     cfg.Password,
			PasswordHash: cfg.PasswordHash,
		},
	}
}

// NewWithArchiver additionally mirrors every export into object storage.
func NewWithArchiver(cfg config.Config, dataStore dataStore, archiver archiver) *Service {
	s := New(cfg, dataStore)
	s.archiver = archiver
	return s
}

func (s *Service) Ping(ctx context.Context, tenant store.Tenant) error {
	return s.store.Ping(ctx, tenant)
}

// Login validates the fixed operator credentials and returns a signed
// session marker for the auth cookie.
func (s *Service) Login(username, password string) (string, time.Time, error) {
	ok, err := s.creds.Check(username, password)
	if err != nil {
		if err == auth.ErrNotConfigured {
			return "", time.Time{}, domainError(http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "Dashboard auth is not configured.", nil)
		}
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password.", nil)
	}

	expiresAt := time.Now().Add(s.cfg.MarkerTTL)
	marker, err := auth.IssueMarker([]byte(s.cfg.MarkerSecret), username, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return marker, expiresAt, nil
}

// VerifyMarker checks the session cookie value.
func (s *Service) VerifyMarker(token string) error {
	_, err := auth.VerifyMarker([]byte(s.cfg.MarkerSecret), token)
	return err
}

func (s *Service) Sessions(ctx context.Context, tenant store.Tenant, limit int) ([]store.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx, tenant, limit)
	if err != nil {
		log.Printf("failed to fetch sessions: %v", err)
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Unable to fetch sessions.", nil)
	}
	return sessions, nil
}

func (s *Service) Messages(ctx context.Context, tenant store.Tenant, sessionID string) ([]store.ChatMessage, error) {
	if sessionID == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Session id is required.", nil)
	}
	messages, err := s.store.ListMessages(ctx, tenant, sessionID)
	if err != nil {
		log.Printf("failed to fetch messages for %s: %v", sessionID, err)
		return nil, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Unable to fetch messages.", nil)
	}
	return messages, nil
}

// Export renders the CSV for a whole tenant or a single session. The archive
// copy is best effort and never blocks the download.
func (s *Service) Export(ctx context.Context, tenant store.Tenant, sessionID string) (*export.Result, error) {
	rows, err := s.store.ExportRows(ctx, tenant, sessionID)
	if err != nil {
		log.Printf("failed to export chats: %v", err)
		return nil, domainError(http.StatusInternalServerError, "EXPORT_FAILED", "Unable to export chats.", nil)
	}
	result := export.RenderCSV(rows, sessionID)
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, tenant, result); err != nil {
			log.Printf("export archive failed: %v", err)
		}
	}
	return result, nil
}
