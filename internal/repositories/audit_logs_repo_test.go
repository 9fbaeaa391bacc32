package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"voxbank/internal/models"
)

type AuditLogsRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    AuditLogsRepository
	userID  uuid.UUID
	context context.Context
}

func (suite *AuditLogsRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewAuditLogsRepository(mock)
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *AuditLogsRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAuditLogsRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AuditLogsRepoTestSuite))
}

// The conflict clause must keep an existing action/input when the new write
// carries empty strings, otherwise a follow-up merge on the same trace wipes
// the row the fraud heuristic counts.
func (suite *AuditLogsRepoTestSuite) TestUpsert_MergePreservesActionAndInput() {
	previewID := uuid.New()
	entry := &models.AgentAuditLog{
		TraceID:   "TRACE_merge",
		UserID:    suite.userID,
		PreviewID: &previewID,
	}

	suite.mock.ExpectExec(`(?s)INSERT INTO agent_audit_logs (.+) ON CONFLICT \(trace_id\) DO UPDATE SET\s+action = COALESCE\(NULLIF\(EXCLUDED\.action, ''\), agent_audit_logs\.action\),\s+input = COALESCE\(NULLIF\(EXCLUDED\.input, ''\), agent_audit_logs\.input\)`).
		WithArgs(pgxmock.AnyArg(), "TRACE_merge", suite.userID, "", "",
			[]byte(nil), []byte(nil), &previewID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Upsert(suite.context, entry)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AuditLogsRepoTestSuite) TestCountRecentByAction() {
	since := time.Now().Add(-2 * time.Minute)

	suite.mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM agent_audit_logs`).
		WithArgs(suite.userID, models.ActionMakePayment, since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	count, err := suite.repo.CountRecentByAction(suite.context, suite.userID, models.ActionMakePayment, since)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 4, count)
}
