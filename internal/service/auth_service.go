package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/events"
	"github.com/spec-kit/student-auth/internal/repository"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

const bearerTokenType = "Bearer"

// RegisterInput describes a registration request.
type RegisterInput struct {
	Username string
	Password string
	Email    *string
	RollNo   int
	Role     string
}

// LoginInput carries credentials. Username may also be an email address.
type LoginInput struct {
	Username string
	Password string
}

// UserInfo is the public view of a principal.
type UserInfo struct {
	ID                    int64       `json:"id"`
	Username              string      `json:"username"`
	Email                 *string     `json:"email,omitempty"`
	RollNo                int         `json:"rollNo"`
	Role                  domain.Role `json:"role"`
	Enabled               bool        `json:"enabled"`
	AccountNonExpired     bool        `json:"accountNonExpired"`
	AccountNonLocked      bool        `json:"accountNonLocked"`
	CredentialsNonExpired bool        `json:"credentialsNonExpired"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// NewUserInfo builds the public view of user.
func NewUserInfo(user *domain.User) *UserInfo {
	return &UserInfo{
		ID:                    user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		RollNo:                user.RollNo,
		Role:                  user.Role,
		Enabled:               user.Enabled,
		AccountNonExpired:     !user.AccountExpired,
		AccountNonLocked:      !user.Locked,
		CredentialsNonExpired: !user.CredentialsExpired,
		CreatedAt:             user.CreatedAt,
		UpdatedAt:             user.UpdatedAt,
	}
}

// AuthResponse is the result of every auth operation.
type AuthResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
}

// AuthService coordinates registration, login and token lifecycle flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	tx         repository.Transactor
	hasher     auth.PasswordHasher
	issuer     *auth.Issuer
	validator  *auth.Validator
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	// Tx creates a principal and its first refresh token atomically.
	Tx         repository.Transactor
	Hasher     auth.PasswordHasher
	Issuer     *auth.Issuer
	Validator  *auth.Validator
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.RefreshTokenRepo,
		tx:         deps.Tx,
		hasher:     deps.Hasher,
		issuer:     deps.Issuer,
		validator:  deps.Validator,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	if s.dispatcher == nil {
		s.dispatcher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register creates a principal and signs them in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, in); err != nil {
		return nil, err
	}

	role := domain.RoleStudent
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := domain.ParseRole(in.Role)
		if err != nil {
			s.logger.Warn("invalid role requested, defaulting to STUDENT",
				zap.String("username", in.Username), zap.String("role", in.Role))
		} else {
			role = parsed
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		RollNo:       in.RollNo,
		PasswordHash: hash,
		Role:         role,
		Enabled:      true,
	}
	var accessToken, refreshToken string
	err = s.tx.InTx(ctx, func(users repository.UserRepository, tokens repository.RefreshTokenRepository) error {
		if err := users.Create(ctx, user); err != nil {
			if field, ok := repository.UniqueViolationField(err); ok {
				return apperrors.NewConflict(field, conflictMessage(field))
			}
			return apperrors.NewInternalError(fmt.Errorf("create user: %w", err))
		}

		var err error
		accessToken, refreshToken, err = s.issuePair(user)
		if err != nil {
			return err
		}
		if err := tokens.Save(ctx, s.newRecord(user, refreshToken)); err != nil {
			return apperrors.NewInternalError(fmt.Errorf("save refresh token: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user registered",
		zap.String("username", user.Username), zap.String("role", string(user.Role)))
	s.publish(ctx, events.New(events.EventUserRegistered, user.Username, &user.ID, s.clock.Now(),
		events.UserRegisteredPayload{Role: user.Role, RollNo: user.RollNo}))

	return s.tokenResponse("User registered successfully", user, accessToken, refreshToken), nil
}

// Login verifies credentials, revokes every earlier session and issues a new pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	login := strings.TrimSpace(in.Username)
	if login == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, login)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, s.loginFailed(ctx, login, nil, "unknown user")
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}

	if !s.hasher.Matches(user.PasswordHash, in.Password) {
		return nil, s.loginFailed(ctx, user.Username, &user.ID, "bad password")
	}
	if !user.CanAuthenticate() {
		return nil, s.loginFailed(ctx, user.Username, &user.ID, "account disabled")
	}

	accessToken, refreshToken, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Rotate(ctx, user.ID, s.newRecord(user, refreshToken)); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("rotate refresh tokens: %w", err))
	}

	s.logger.Info("user logged in", zap.String("username", user.Username))
	s.publish(ctx, events.New(events.EventLoginSucceeded, user.Username, &user.ID, s.clock.Now(),
		events.LoginSucceededPayload{RevokedSessions: true}))

	return s.tokenResponse("Login successful", user, accessToken, refreshToken), nil
}

// Refresh mints a new access token from a stored, valid refresh token. The
// refresh token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.NewInvalidToken("Invalid refresh token")
	}

	claims, err := s.validator.RequireKind(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeTokenExpired) {
			return nil, apperrors.NewTokenExpired("Refresh token has expired")
		}
		return nil, apperrors.NewInvalidToken("Invalid refresh token")
	}

	record, err := s.tokens.FindByToken(ctx, refreshToken)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("Refresh token", nil)
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("find refresh token: %w", err))
	}

	if !record.Valid(s.clock.Now()) {
		if record.Revoked {
			return nil, apperrors.NewTokenRevoked("Refresh token is expired or revoked")
		}
		return nil, apperrors.NewTokenExpired("Refresh token is expired or revoked")
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("User", map[string]any{"id": record.UserID})
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if user.Username != claims.Subject {
		s.logger.Warn("refresh token subject does not match its owner",
			zap.Int64("user_id", user.ID), zap.String("subject", claims.Subject))
		return nil, apperrors.NewInvalidToken("Invalid refresh token")
	}
	if !user.CanAuthenticate() {
		return nil, apperrors.NewAccessDenied("Account is disabled")
	}

	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("issue access token: %w", err))
	}

	s.logger.Info("access token refreshed", zap.String("username", user.Username))
	s.publish(ctx, events.New(events.EventTokenRefreshed, user.Username, &user.ID, s.clock.Now(), nil))

	return s.tokenResponse("Token refreshed successfully", user, accessToken, refreshToken), nil
}

// Logout revokes the presented refresh token, if any. It always succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) *AuthResponse {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		s.logger.Info("logout without refresh token")
		s.publish(ctx, events.New(events.EventLoggedOut, "", nil, s.clock.Now(), events.LoggedOutPayload{}))
		return &AuthResponse{Success: true, Message: "Logout successful"}
	}

	revoked, err := s.tokens.RevokeOne(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("logout completed with errors", zap.Error(err))
		return &AuthResponse{Success: true, Message: "Logout completed"}
	}

	username, _ := s.validator.Username(refreshToken)
	s.publish(ctx, events.New(events.EventLoggedOut, username, nil, s.clock.Now(),
		events.LoggedOutPayload{Revoked: revoked > 0}))
	return &AuthResponse{Success: true, Message: "Logout successful"}
}

// Profile returns the public view of the named principal.
func (s *AuthService) Profile(ctx context.Context, username string) (*UserInfo, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewNotFound("User", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewNotFound("User", map[string]any{"username": username})
	case err != nil:
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	return NewUserInfo(user), nil
}

// Validate checks an access token and resolves its principal.
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*AuthResponse, error) {
	caller, err := s.validator.Authenticate(accessToken)
	if err != nil {
		return nil, err
	}
	info, err := s.Profile(ctx, caller.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Success: true, Message: "Token is valid", User: info}, nil
}

// CleanupExpiredTokens deletes refresh token records past their expiry.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, apperrors.NewInternalError(fmt.Errorf("delete expired tokens: %w", err))
	}
	s.logger.Info("cleaned up expired refresh tokens", zap.Int64("removed", removed))
	return removed, nil
}

func (s *AuthService) ensureUnique(ctx context.Context, in RegisterInput) error {
	checks := []struct {
		field string
		check func() (bool, error)
	}{
		{"username", func() (bool, error) { return s.users.ExistsByUsername(ctx, in.Username) }},
		{"email", func() (bool, error) {
			if in.Email == nil {
				return false, nil
			}
			return s.users.ExistsByEmail(ctx, *in.Email)
		}},
		{"rollNo", func() (bool, error) { return s.users.ExistsByRollNo(ctx, in.RollNo) }},
	}

	for _, c := range checks {
		taken, err := c.check()
		if err != nil {
			return apperrors.NewInternalError(fmt.Errorf("check %s: %w", c.field, err))
		}
		if taken {
			return apperrors.NewConflict(c.field, conflictMessage(c.field))
		}
	}
	return nil
}

func (s *AuthService) issuePair(user *domain.User) (string, string, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return "", "", apperrors.NewInternalError(fmt.Errorf("issue access token: %w", err))
	}
	refreshToken, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return "", "", apperrors.NewInternalError(fmt.Errorf("issue refresh token: %w", err))
	}
	return accessToken, refreshToken, nil
}

func (s *AuthService) newRecord(user *domain.User, token string) *domain.RefreshToken {
	now := s.clock.Now()
	return &domain.RefreshToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.issuer.RefreshTokenTTL()),
		CreatedAt: now,
	}
}

func (s *AuthService) tokenResponse(message string, user *domain.User, accessToken, refreshToken string) *AuthResponse {
	return &AuthResponse{
		Success:      true,
		Message:      message,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    bearerTokenType,
		ExpiresIn:    s.issuer.AccessTokenExpiresIn(),
		User:         NewUserInfo(user),
	}
}

// loginFailed records the real reason internally and returns the generic error.
func (s *AuthService) loginFailed(ctx context.Context, username string, userID *int64, reason string) error {
	s.logger.Info("login failed", zap.String("username", username), zap.String("reason", reason))
	s.publish(ctx, events.New(events.EventLoginFailed, username, userID, s.clock.Now(),
		events.LoginFailedPayload{Reason: reason}))
	return apperrors.NewCredentialError()
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func conflictMessage(field string) string {
	switch field {
	case "username":
		return "Username is already taken!"
	case "email":
		return "Email is already in use!"
	case "rollNo":
		return "Roll number is already registered!"
	default:
		return "Resource already exists"
	}
}
