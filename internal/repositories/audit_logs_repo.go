package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"voxbank/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Upsert merges into the row keyed by trace id, creating it on first
	// write. Empty action/input and nil intent/result/preview values never
	// overwrite what an earlier write recorded.
	Upsert(ctx context.Context, entry *models.AgentAuditLog) error

	// CountRecentByAction counts a user's entries for an action inside a
	// trailing window; the fraud heuristic's replay check.
	CountRecentByAction(ctx context.Context, userID uuid.UUID, action string, since time.Time) (int, error)

	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AgentAuditLog, error)

	// ListBetween returns entries created inside [start, end) for archival.
	ListBetween(ctx context.Context, start, end time.Time) ([]*models.AgentAuditLog, error)
}

type auditLogsRepo struct {
	db DB
}

func NewAuditLogsRepository(db DB) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Upsert(ctx context.Context, entry *models.AgentAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now()

	var intentBytes, resultBytes []byte
	var err error
	if entry.Intent != nil {
		if intentBytes, err = json.Marshal(entry.Intent); err != nil {
			return fmt.Errorf("failed to marshal intent: %w", err)
		}
	}
	if entry.Result != nil {
		if resultBytes, err = json.Marshal(entry.Result); err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	// Merges never blank a field: an empty action/input on a follow-up write
	// (e.g. attaching a preview id) keeps what the first write recorded, so
	// action counting stays accurate across the trace's lifetime.
	query := `
		INSERT INTO agent_audit_logs (id, trace_id, user_id, action, input, intent, result, preview_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (trace_id) DO UPDATE SET
			action = COALESCE(NULLIF(EXCLUDED.action, ''), agent_audit_logs.action),
			input = COALESCE(NULLIF(EXCLUDED.input, ''), agent_audit_logs.input),
			intent = COALESCE(EXCLUDED.intent, agent_audit_logs.intent),
			result = COALESCE(EXCLUDED.result, agent_audit_logs.result),
			preview_id = COALESCE(EXCLUDED.preview_id, agent_audit_logs.preview_id),
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Exec(ctx, query,
		entry.ID, entry.TraceID, entry.UserID, entry.Action, entry.Input,
		intentBytes, resultBytes, entry.PreviewID, now,
	)
	return err
}

func (r *auditLogsRepo) CountRecentByAction(ctx context.Context, userID uuid.UUID, action string, since time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM agent_audit_logs
		WHERE user_id = $1 AND action = $2 AND created_at >= $3
	`
	err := r.db.QueryRow(ctx, query, userID, action, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *auditLogsRepo) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AgentAuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	query := `
		SELECT id, trace_id, user_id, action, input, intent, result, preview_id, created_at, updated_at
		FROM agent_audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 0

	if filters.UserID != nil {
		argIdx++
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filters.UserID)
	}
	if filters.Action != nil {
		argIdx++
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, *filters.Action)
	}
	if filters.StartDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.EndDate)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		argIdx++
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			argIdx++
			query += fmt.Sprintf(" OFFSET $%d", argIdx)
			args = append(args, filters.Offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AgentAuditLog
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *auditLogsRepo) ListBetween(ctx context.Context, start, end time.Time) ([]*models.AgentAuditLog, error) {
	query := `
		SELECT id, trace_id, user_id, action, input, intent, result, preview_id, created_at, updated_at
		FROM agent_audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AgentAuditLog
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type auditRow interface {
	Scan(dest ...interface{}) error
}

func scanAuditLog(row auditRow) (*models.AgentAuditLog, error) {
	entry := &models.AgentAuditLog{}
	var intentBytes, resultBytes []byte

	err := row.Scan(
		&entry.ID, &entry.TraceID, &entry.UserID, &entry.Action, &entry.Input,
		&intentBytes, &resultBytes, &entry.PreviewID, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(intentBytes) > 0 {
		if err := json.Unmarshal(intentBytes, &entry.Intent); err != nil {
			return nil, fmt.Errorf("failed to unmarshal intent: %w", err)
		}
	}
	if len(resultBytes) > 0 {
		if err := json.Unmarshal(resultBytes, &entry.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return entry, nil
}
