package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"voxbank/internal/common"
	"voxbank/internal/models"
)

type AuthServiceTestSuite struct {
	suite.Suite
	users    *MockUserRepository
	accounts *MockAccountRepository
	service  AuthService
	ctx      context.Context
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.users = &MockUserRepository{}
	suite.accounts = &MockAccountRepository{}
	suite.service = NewAuthService(suite.users, suite.accounts, NewTokenCodec(testSecret))
	suite.ctx = context.Background()
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

// Registration opens a funded savings account along with the user; without
// it a fresh user has nothing to preview a payment from.
func (suite *AuthServiceTestSuite) TestRegister_OpensDefaultSavingsAccount() {
	suite.users.On("GetByEmail", suite.ctx, "new@voxbank.in").Return(nil, common.ErrNotFound)
	suite.users.On("Create", suite.ctx, mock.AnythingOfType("*models.User")).Return(nil)
	suite.accounts.On("Create", suite.ctx, mock.AnythingOfType("*models.Account")).Return(nil)

	result, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email:    "New@VoxBank.in",
		Password: "correct horse",
		Name:     "Asha",
		Phone:    "9876543210",
	})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "new@voxbank.in", result.User.Email)

	account := result.Account
	require.NotNil(suite.T(), account)
	assert.Equal(suite.T(), result.User.ID, account.UserID)
	assert.Equal(suite.T(), models.AccountTypeSavings, account.Type)
	assert.Equal(suite.T(), startingBalance, account.Balance)
	assert.Equal(suite.T(), "INR", account.Currency)
	assert.Equal(suite.T(), models.AccountStatusActive, account.Status)
	assert.True(suite.T(), strings.HasPrefix(account.AccountNumber, "ACC"))

	suite.accounts.AssertCalled(suite.T(), "Create", suite.ctx, account)
}

func (suite *AuthServiceTestSuite) TestRegister_DuplicateEmail() {
	suite.users.On("GetByEmail", suite.ctx, "taken@voxbank.in").Return(&models.User{}, nil)

	_, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email:    "taken@voxbank.in",
		Password: "correct horse",
	})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidState)
	suite.accounts.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *AuthServiceTestSuite) TestRegister_ShortPassword() {
	_, err := suite.service.Register(suite.ctx, RegisterRequest{
		Email:    "new@voxbank.in",
		Password: "short",
	})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidState)
}

func (suite *AuthServiceTestSuite) TestLogin_Success() {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(suite.T(), err)
	suite.users.On("GetByEmail", suite.ctx, "user@voxbank.in").Return(&models.User{
		Email:        "user@voxbank.in",
		PasswordHash: string(hash),
		Status:       models.UserStatusActive,
	}, nil)

	result, err := suite.service.Login(suite.ctx, "user@voxbank.in", "correct horse")
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), result.SessionToken)
}

func (suite *AuthServiceTestSuite) TestLogin_WrongPassword() {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(suite.T(), err)
	suite.users.On("GetByEmail", suite.ctx, "user@voxbank.in").Return(&models.User{
		Email:        "user@voxbank.in",
		PasswordHash: string(hash),
		Status:       models.UserStatusActive,
	}, nil)

	_, err = suite.service.Login(suite.ctx, "user@voxbank.in", "wrong")
	assert.ErrorIs(suite.T(), err, common.ErrUnauthorized)
}
