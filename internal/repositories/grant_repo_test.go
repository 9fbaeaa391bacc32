package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"voxbank/internal/common"
	"voxbank/internal/models"
)

type GrantRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    GrantRepository
	userID  uuid.UUID
	context context.Context
}

func (suite *GrantRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewGrantRepository(mock)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *GrantRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestGrantRepoTestSuite(t *testing.T) {
	suite.Run(t, new(GrantRepoTestSuite))
}

func (suite *GrantRepoTestSuite) TestCreate_JoinsScopes() {
	grant := &models.AuthorizationGrant{
		ID:                uuid.New(),
		UserID:            suite.userID,
		ClientID:          "ai-agent",
		AuthorizationCode: "abc123",
		Scopes:            []string{"payments", "read_balance"},
		RedirectURI:       "http://localhost:3000/agent/callback",
		ExpiresAt:         time.Now().Add(10 * time.Minute),
	}

	suite.mock.ExpectExec("INSERT INTO oauth_grants").
		WithArgs(grant.ID, grant.UserID, grant.ClientID, grant.AuthorizationCode,
			"payments read_balance", grant.RedirectURI,
			grant.CodeChallenge, grant.CodeChallengeMethod, grant.ExpiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, grant)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *GrantRepoTestSuite) TestGetByCode_SplitsScopes() {
	grantID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "client_id", "authorization_code", "scopes", "redirect_uri",
		"code_challenge", "code_challenge_method", "expires_at", "used", "created_at",
	}).AddRow(grantID, suite.userID, "ai-agent", "abc123", "payments read_balance",
		"http://localhost:3000/agent/callback", (*string)(nil), (*string)(nil),
		now.Add(10*time.Minute), false, now)

	suite.mock.ExpectQuery(`(?s)SELECT (.+) FROM oauth_grants`).
		WithArgs("abc123").
		WillReturnRows(rows)

	grant, err := suite.repo.GetByCode(suite.context, "abc123")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), grantID, grant.ID)
	assert.Equal(suite.T(), []string{"payments", "read_balance"}, grant.Scopes)
	assert.False(suite.T(), grant.Used)
}

func (suite *GrantRepoTestSuite) TestGetByCode_NotFound() {
	suite.mock.ExpectQuery(`(?s)SELECT (.+) FROM oauth_grants`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := suite.repo.GetByCode(suite.context, "missing")
	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *GrantRepoTestSuite) TestMarkUsed_FirstWinnerSucceeds() {
	grantID := uuid.New()
	suite.mock.ExpectExec("UPDATE oauth_grants").
		WithArgs(grantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(suite.T(), suite.repo.MarkUsed(suite.context, grantID))
}

// Zero rows affected means another exchange already consumed the code.
func (suite *GrantRepoTestSuite) TestMarkUsed_SecondCallerLoses() {
	grantID := uuid.New()
	suite.mock.ExpectExec("UPDATE oauth_grants").
		WithArgs(grantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.MarkUsed(suite.context, grantID)
	assert.ErrorIs(suite.T(), err, common.ErrAlreadyUsed)
}

// Used grants inside the retention window must survive the sweep so that a
// replayed exchange keeps failing with already-used instead of
// code-not-found; only used grants past the cutoff go.
func (suite *GrantRepoTestSuite) TestDeleteStale_RetainsRecentlyUsedGrants() {
	suite.mock.ExpectExec(`DELETE FROM oauth_grants\s+WHERE \(used = true AND created_at < \$1\) OR expires_at < \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := suite.repo.DeleteStale(suite.context, 24*time.Hour)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), n)
}
