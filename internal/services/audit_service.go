package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"voxbank/internal/models"
	"voxbank/internal/repositories"

	"github.com/google/uuid"
)

// AuditService records every agent decision keyed by a trace id that flows
// through the whole request. Recording is best-effort: a logging failure
// must never abort the primary operation.
type AuditService interface {
	// Record upserts by trace id and returns the trace id, generating one
	// when none is supplied.
	Record(ctx context.Context, userID uuid.UUID, action, input string, output models.JSONB, metadata models.JSONB, traceID string) string

	// AttachPreview links a preview to an existing trace.
	AttachPreview(ctx context.Context, userID uuid.UUID, traceID string, previewID uuid.UUID)

	CountRecentByAction(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (int, error)
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AgentAuditLog, error)
}

type auditService struct {
	auditRepo repositories.AuditLogsRepository
}

func NewAuditService(auditRepo repositories.AuditLogsRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(ctx context.Context, userID uuid.UUID, action, input string, output models.JSONB, metadata models.JSONB, traceID string) string {
	if traceID == "" {
		traceID = fmt.Sprintf("TRACE_%s", uuid.NewString())
	}

	intent := models.JSONB{"action": action, "timestamp": time.Now().Format(time.RFC3339)}
	for k, v := range metadata {
		intent[k] = v
	}

	entry := &models.AgentAuditLog{
		TraceID: traceID,
		UserID:  userID,
		Action:  action,
		Input:   input,
		Intent:  intent,
		Result:  output,
	}
	if err := s.auditRepo.Upsert(ctx, entry); err != nil {
		log.Printf("audit record failed for trace %s: %v", traceID, err)
	}
	return traceID
}

// AttachPreview only carries the preview id; the empty action and input keep
// the values the originating Record wrote, so payment-intent rows stay
// countable by action.
func (s *auditService) AttachPreview(ctx context.Context, userID uuid.UUID, traceID string, previewID uuid.UUID) {
	entry := &models.AgentAuditLog{
		TraceID:   traceID,
		UserID:    userID,
		PreviewID: &previewID,
	}
	if err := s.auditRepo.Upsert(ctx, entry); err != nil {
		log.Printf("audit preview attach failed for trace %s: %v", traceID, err)
	}
}

func (s *auditService) CountRecentByAction(ctx context.Context, userID uuid.UUID, action string, window time.Duration) (int, error) {
	return s.auditRepo.CountRecentByAction(ctx, userID, action, time.Now().Add(-window))
}

func (s *auditService) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AgentAuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{Limit: 50}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 50
	}
	return s.auditRepo.List(ctx, filters)
}
