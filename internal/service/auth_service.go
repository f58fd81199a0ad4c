package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"legacyvault/internal/config"
	"legacyvault/internal/events"
	"legacyvault/internal/ids"
	"legacyvault/internal/models"
	"legacyvault/internal/rbac"
	"legacyvault/internal/repository"
	"legacyvault/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
)

type AuthService struct {
	users    UserStore
	sessions SessionStore
	roles    RoleStore
	vaults   VaultStore
	memories MemoryStore
	events   EventPublisher
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	roles RoleStore,
	vaults VaultStore,
	memories MemoryStore,
	publisher EventPublisher,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		roles:    roles,
		vaults:   vaults,
		memories: memories,
		events:   publisher,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         models.User
	DeviceID     string
}

// Register creates a user on the default role and opens their first session.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("email and password required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, fmt.Errorf("email already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	assignment := models.RoleAssignment{
		UserID:     user.ID,
		RoleID:     rbac.DefaultRoleID,
		AssignedBy: user.ID,
	}
	if err := s.roles.Assign(ctx, assignment); err != nil {
		return AuthResult{}, err
	}

	_, tokens, err := s.createSession(ctx, user, ids.New(), "New Device", "", "")
	if err != nil {
		return AuthResult{}, err
	}
	return tokens, nil
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	deviceName := input.DeviceName
	if deviceName == "" {
		deviceName = "Unknown Device"
	}

	_, tokens, err := s.createSession(ctx, user, deviceID, deviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return AuthResult{}, err
	}
	return tokens, nil
}

func (s *AuthService) createSession(
	ctx context.Context,
	user models.User,
	deviceID string,
	deviceName string,
	ipAddress string,
	userAgent string,
) (models.Session, AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return models.Session{}, AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		RefreshTokenHash: refreshHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        time.Now().Add(s.cfg.JWTRefreshTTL),
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.JWTAccessSecret,
		user.ID,
		session.ID,
		deviceID,
		s.cfg.JWTAccessTTL,
	)
	if err != nil {
		return models.Session{}, AuthResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return models.Session{}, AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	return session, AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     deviceID,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}

	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}

type RefreshInput struct {
	UserID       string
	RefreshToken string
	DeviceID     string
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return AuthResult{}, err
	}
	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	refreshHash := security.HashRefreshToken(input.RefreshToken)
	session, err := s.sessions.FindByRefreshHash(ctx, input.UserID, refreshHash)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.DeviceID != input.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	refreshToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session.RefreshTokenHash = newHash
	session.ExpiresAt = time.Now().Add(s.cfg.JWTRefreshTTL)

	// The sessions table upserts on (user_id, device_id), so this rotates
	// the refresh hash in place.
	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.JWTAccessSecret,
		user.ID,
		session.ID,
		session.DeviceID,
		s.cfg.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
		DeviceID:     session.DeviceID,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string, deviceID string) error {
	return s.sessions.DeleteByDevice(ctx, userID, deviceID)
}

func (s *AuthService) Sessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

type ProfilePatch struct {
	DisplayName string
	AvatarURL   *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (models.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, patch.DisplayName, patch.AvatarURL); err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes the user and everything hanging off them. Vaults
// where the user is the only admin are purged outright, including their
// stored media; other memberships are simply dropped. Roles and sessions go
// last so a failure partway leaves the account still able to retry.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	vaults, err := s.vaults.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, vault := range vaults {
		if vault.IsAdmin(userID) && vault.AdminCount() == 1 {
			if err := purgeVault(ctx, s.vaults, s.memories, s.events, vault, userID); err != nil {
				return err
			}
			continue
		}
		if err := s.vaults.RemoveMember(ctx, vault.ID, userID); err != nil {
			return err
		}
		s.events.Publish(ctx, events.Event{
			Type:    events.TypeMemberLeft,
			VaultID: vault.ID,
			ActorID: userID,
		})
	}

	if err := s.roles.RemoveAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}
