package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"golang.org/x/crypto/bcrypt"

	"voxbank/internal/common"
	"voxbank/internal/models"
	"voxbank/internal/repositories"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type LoginResult struct {
	User         *models.User `json:"user"`
	SessionToken string       `json:"sessionToken"`
}

type RegisterResult struct {
	User    *models.User    `json:"user"`
	Account *models.Account `json:"account"`
}

// startingBalance seeds the savings account opened at registration.
const startingBalance = 10000.0

// AuthService handles the interactive banking session: registration and
// password login. Agent access goes through OAuthService instead.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	users    repositories.UserRepository
	accounts repositories.AccountRepository
	codec    TokenCodec
}

func NewAuthService(users repositories.UserRepository, accounts repositories.AccountRepository, codec TokenCodec) AuthService {
	return &authService{users: users, accounts: accounts, codec: codec}
}

// Register creates the user together with a default savings account, so a
// fresh registration can immediately run the preview pipeline.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", common.ErrInvalidState)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", common.ErrInvalidState)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", common.ErrInvalidState)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Status:       models.UserStatusActive,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = &phone
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:            uuid.New(),
		UserID:        user.ID,
		AccountNumber: fmt.Sprintf("ACC%d%s", time.Now().UnixMilli(), random.String(3, random.Numeric)),
		Type:          models.AccountTypeSavings,
		Balance:       startingBalance,
		Currency:      "INR",
		Status:        models.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("open default account: %w", err)
	}
	return &RegisterResult{User: user, Account: account}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusActive {
		return nil, common.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	token, err := s.codec.SignSession(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &LoginResult{User: user, SessionToken: token}, nil
}
