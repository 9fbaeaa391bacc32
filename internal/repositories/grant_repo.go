package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"voxbank/internal/common"
	"voxbank/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type GrantRepository interface {
	Create(ctx context.Context, grant *models.AuthorizationGrant) error
	GetByCode(ctx context.Context, code string) (*models.AuthorizationGrant, error)
	// MarkUsed flips used false->true. It returns common.ErrAlreadyUsed when
	// the grant exists but was exchanged before, so a replayed exchange fails
	// distinctly from a code that never existed.
	MarkUsed(ctx context.Context, id uuid.UUID) error
	// DeleteStale removes used and expired grants older than the retention
	// window. Recently used grants stay so a replayed exchange fails with
	// already-used rather than code-not-found.
	DeleteStale(ctx context.Context, retention time.Duration) (int64, error)
}

type grantRepo struct {
	db DB
}

func NewGrantRepository(db DB) GrantRepository {
	return &grantRepo{db: db}
}

func (r *grantRepo) Create(ctx context.Context, grant *models.AuthorizationGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	grant.CreatedAt = time.Now()

	query := `
		INSERT INTO oauth_grants (id, user_id, client_id, authorization_code, scopes, redirect_uri,
			code_challenge, code_challenge_method, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10)
	`
	_, err := r.db.Exec(ctx, query,
		grant.ID, grant.UserID, grant.ClientID, grant.AuthorizationCode,
		strings.Join(grant.Scopes, " "), grant.RedirectURI,
		grant.CodeChallenge, grant.CodeChallengeMethod, grant.ExpiresAt, grant.CreatedAt,
	)
	return err
}

func (r *grantRepo) GetByCode(ctx context.Context, code string) (*models.AuthorizationGrant, error) {
	grant := &models.AuthorizationGrant{}
	var scopes string

	query := `
		SELECT id, user_id, client_id, authorization_code, scopes, redirect_uri,
			code_challenge, code_challenge_method, expires_at, used, created_at
		FROM oauth_grants
		WHERE authorization_code = $1
	`
	err := r.db.QueryRow(ctx, query, code).Scan(
		&grant.ID, &grant.UserID, &grant.ClientID, &grant.AuthorizationCode, &scopes,
		&grant.RedirectURI, &grant.CodeChallenge, &grant.CodeChallengeMethod,
		&grant.ExpiresAt, &grant.Used, &grant.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	grant.Scopes = strings.Fields(scopes)
	return grant, nil
}

func (r *grantRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	// The used=false guard makes the flip atomic across concurrent
	// exchanges: the loser sees zero rows affected.
	query := `
		UPDATE oauth_grants
		SET used = true
		WHERE id = $1 AND used = false
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAlreadyUsed
	}
	return nil
}

func (r *grantRepo) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM oauth_grants
		WHERE (used = true AND created_at < $1) OR expires_at < $1
	`
	tag, err := r.db.Exec(ctx, query, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
