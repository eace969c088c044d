package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
	"eventplanner-backend/pkg/email"
	"eventplanner-backend/pkg/jwt"
	"eventplanner-backend/pkg/logger"
	"eventplanner-backend/pkg/password"
)

// UserRepository interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Activate(ctx context.Context, userID int64) error
	TouchLastLogin(ctx context.Context, userID int64) error
	UpdateProfile(ctx context.Context, userID int64, update *domain.UserProfileUpdate) (*domain.User, error)
}

// Service handles registration, activation and token issuance
type Service struct {
	users   UserRepository
	tokens  *jwt.Manager
	mailer  email.Sender
	siteURL string
}

// NewService creates a new auth service. siteURL is the public API base used
// in confirmation links.
func NewService(users UserRepository, tokens *jwt.Manager, mailer email.Sender, siteURL string) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		siteURL: siteURL,
	}
}

// WeakPasswordError carries the per-field findings of password validation
type WeakPasswordError struct {
	Findings []*password.ValidationError
}

// Error implements the error interface
func (e *WeakPasswordError) Error() string {
	messages := make([]string, len(e.Findings))
	for i, finding := range e.Findings {
		messages[i] = finding.Message
	}
	return strings.Join(messages, "; ")
}

// Register creates an inactive user and emails a confirmation link
func (s *Service) Register(ctx context.Context, input *domain.UserRegister) (*domain.UserResponse, error) {
	if findings := password.Validate(input.Password, nil); len(findings) > 0 {
		return nil, &WeakPasswordError{Findings: findings}
	}

	hash, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:                     strings.TrimSpace(input.Email),
		Name:                      strings.TrimSpace(input.Name),
		PasswordHash:              hash,
		IsActive:                  false,
		EmailNotificationsEnabled: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendConfirmation(user)
	return user.ToResponse(), nil
}

// sendConfirmation issues a confirm token and dispatches the email without
// blocking the request
func (s *Service) sendConfirmation(user *domain.User) {
	token, err := s.tokens.GenerateConfirmToken(user.ID, user.Email)
	if err != nil {
		logger.Error("Failed to issue confirmation token",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		return
	}

	confirmURL := fmt.Sprintf("%s/api/auth/confirm?token=%s", s.siteURL, token)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mailer.SendConfirmation(ctx, user.Email, &email.ConfirmationData{
			Name:       user.DisplayName(),
			ConfirmURL: confirmURL,
		}); err != nil {
			logger.Warn("Failed to send confirmation email",
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		}
	}()
}

// Confirm activates the account referenced by a confirmation token
func (s *Service) Confirm(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token, jwt.PurposeConfirm)
	if err != nil {
		return domain.NewError("INVALID_TOKEN", "Confirmation token is invalid or expired")
	}
	return s.users.Activate(ctx, claims.UserID)
}

// ResendConfirmation re-issues the confirmation email for an inactive user.
// Unknown emails return silently so the endpoint does not leak accounts.
func (s *Service) ResendConfirmation(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return nil
		}
		return err
	}
	if user.IsActive {
		return nil
	}
	s.sendConfirmation(user)
	return nil
}

// TokenPair is the login/refresh response
type TokenPair struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token,omitempty"`
	User         *domain.UserResponse `json:"user,omitempty"`
}

// Login verifies credentials and issues access+refresh tokens. The password
// is checked first; an inactive account is reported only once the password
// matches, so a wrong password never reveals the activation state.
func (s *Service) Login(ctx context.Context, emailAddr, pass string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return nil, domain.NewError("INVALID_CREDENTIALS", "Invalid email or password")
		}
		return nil, err
	}

	if !password.Verify(pass, user.PasswordHash) {
		return nil, domain.NewError("INVALID_CREDENTIALS", "Invalid email or password")
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		logger.Warn("Failed to record login time", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	}, nil
}

// Refresh rotates the access token from a valid refresh token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, jwt.PurposeRefresh)
	if err != nil {
		return nil, domain.NewError("INVALID_TOKEN", "Refresh token is invalid or expired")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return &TokenPair{AccessToken: accessToken}, nil
}

// Authenticate resolves a bearer access token to its active user. Both the
// HTTP middleware and the WebSocket handshake go through here.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(accessToken, jwt.PurposeAccess)
	if err != nil {
		return nil, domain.NewError("INVALID_TOKEN", "Access token is invalid or expired")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

// Profile returns the caller's profile
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile patches the caller's profile
func (s *Service) UpdateProfile(ctx context.Context, userID int64, update *domain.UserProfileUpdate) (*domain.UserResponse, error) {
	user, err := s.users.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

var _ UserRepository = (*postgres.UserRepository)(nil)
