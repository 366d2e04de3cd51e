package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/internal/ratelimit"
	"github.com/veletic/gatehouse/internal/repository"
	"github.com/veletic/gatehouse/pkg/config"
	"github.com/veletic/gatehouse/pkg/events"
	"github.com/veletic/gatehouse/pkg/logger"
)

// PasswordHasher abstracts the credential store's hashing side.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) (bool, error)
}

// BreachChecker abstracts the breach-corpus strength check.
type BreachChecker interface {
	IsBreached(ctx context.Context, plaintext string) (bool, error)
}

type AuthService interface {
	// Login authenticates a staff member at a building and returns the raw
	// bearer token plus the created session. Any failure reason collapses
	// into domain.ErrInvalidCredentials on the way out.
	Login(ctx context.Context, req *domain.LoginRequest, remoteAddr string) (string, *domain.Session, *domain.User, error)
	// ValidateToken resolves a bearer token to its session and user,
	// sliding the expiry forward when the session is in its renewal window.
	// Unknown, expired and disabled-user tokens all yield (nil, nil, nil).
	ValidateToken(ctx context.Context, token string) (*domain.Session, *domain.User, error)
	Logout(ctx context.Context, token string) error

	AdminLogin(ctx context.Context, secret string) (string, *domain.AdminSession, error)
	ValidateAdminToken(ctx context.Context, token string) (*domain.AdminSession, error)
	AdminLogout(ctx context.Context, token string) error

	RegisterUser(ctx context.Context, req *domain.RegisterUserRequest) (*domain.User, error)
	SetUserDisabled(ctx context.Context, id int64, disabled bool) error
	UpdateUserSchedule(ctx context.Context, id int64, req *domain.UpdateScheduleRequest) error
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	breach      BreachChecker
	limiter     ratelimit.Limiter
	eventBus    events.Publisher
	cfg         config.AuthConfig
	now         func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	breach BreachChecker,
	limiter ratelimit.Limiter,
	eventBus events.Publisher,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		breach:      breach,
		limiter:     limiter,
		eventBus:    eventBus,
		cfg:         cfg,
		now:         time.Now,
	}
}

// tokenEncoding renders the 20 random token bytes as base32 without padding,
// cookie and URL safe.
var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func generateToken() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// hashToken is the only form a token ever takes at rest.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest, remoteAddr string) (string, *domain.Session, *domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", nil, nil, err
	}

	limitKey := req.Username + "|" + remoteAddr
	allowed, err := s.limiter.Allow(ctx, limitKey)
	if err != nil {
		return "", nil, nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		logger.WarnContext(ctx, "Login rate limited", "username", req.Username, "remote_addr", remoteAddr)
		return "", nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		logger.InfoContext(ctx, "Login failed: unknown username", "username", req.Username)
		return "", nil, nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.Disabled {
		logger.InfoContext(ctx, "Login failed: user disabled", "username", req.Username)
		return "", nil, nil, domain.ErrInvalidCredentials
	}
	if !user.WithinSchedule(s.now()) {
		logger.InfoContext(ctx, "Login failed: outside schedule window",
			"username", req.Username,
			"schedule_start", user.ScheduleStart.String(),
			"schedule_end", user.ScheduleEnd.String(),
		)
		return "", nil, nil, domain.ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(user.PasswordHash, req.Password)
	if err != nil {
		return "", nil, nil, err
	}
	if !match {
		logger.InfoContext(ctx, "Login failed: wrong password", "username", req.Username)
		return "", nil, nil, domain.ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, nil, err
	}

	now := s.now()
	session := &domain.Session{
		ID:        hashToken(token),
		UserID:    user.ID,
		Building:  req.Building,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", nil, nil, domain.Validationf("unknown building: %q", req.Building)
		}
		return "", nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	// The session cap must hold after every successful login, so a failed
	// eviction fails the login and rolls the fresh session back.
	evicted, err := s.sessionRepo.EvictExcess(ctx, user.ID, s.cfg.MaxActiveSessions)
	if err != nil {
		if delErr := s.sessionRepo.Delete(ctx, session.ID); delErr != nil {
			logger.WarnContext(ctx, "Failed to roll back session after eviction failure", "error", delErr, "user_id", user.ID)
		}
		return "", nil, nil, fmt.Errorf("failed to enforce session cap: %w", err)
	}
	if evicted > 0 {
		logger.InfoContext(ctx, "Evicted excess sessions", "user_id", user.ID, "evicted", evicted)
	}

	if err := s.limiter.Reset(ctx, limitKey); err != nil {
		logger.WarnContext(ctx, "Failed to reset login counter", "error", err)
	}

	if err := s.eventBus.Publish(ctx, events.SessionCreated, events.SessionEvent{
		UserID:    user.ID,
		Username:  user.Username,
		Building:  req.Building,
		Timestamp: now,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish session event", "error", err)
	}

	return token, session, user, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	if token == "" {
		return nil, nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, hashToken(token))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			logger.WarnContext(ctx, "Failed to delete expired session", "error", err)
		}
		return nil, nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if user.Disabled {
		if err := s.sessionRepo.Delete(ctx, session.ID); err != nil {
			logger.WarnContext(ctx, "Failed to delete session of disabled user", "error", err)
		}
		return nil, nil, nil
	}

	// Sliding expiry: once a session is past half its lifetime, a
	// successful validation renews it for the full TTL.
	if session.ExpiresAt.Sub(now) < s.cfg.SessionTTL/2 {
		session.ExpiresAt = now.Add(s.cfg.SessionTTL)
		if err := s.sessionRepo.UpdateExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			logger.WarnContext(ctx, "Failed to renew session", "error", err)
		}
	}

	return session, user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	digest := hashToken(token)
	session, err := s.sessionRepo.FindByID(ctx, digest)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.sessionRepo.Delete(ctx, digest); err != nil {
		return err
	}

	if err := s.eventBus.Publish(ctx, events.SessionRevoked, events.SessionEvent{
		UserID:    session.UserID,
		Building:  session.Building,
		Timestamp: s.now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish session event", "error", err)
	}
	return nil
}

func (s *authService) AdminLogin(ctx context.Context, secret string) (string, *domain.AdminSession, error) {
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.AdminSecret)) != 1 {
		logger.InfoContext(ctx, "Admin login failed: wrong secret")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	session := &domain.AdminSession{
		ID:        hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.AdminSessionTTL),
	}
	if err := s.sessionRepo.CreateAdmin(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create admin session: %w", err)
	}

	return token, session, nil
}

func (s *authService) ValidateAdminToken(ctx context.Context, token string) (*domain.AdminSession, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindAdminByID(ctx, hashToken(token))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin session: %w", err)
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		if err := s.sessionRepo.DeleteAdmin(ctx, session.ID); err != nil {
			logger.WarnContext(ctx, "Failed to delete expired admin session", "error", err)
		}
		return nil, nil
	}

	if session.ExpiresAt.Sub(now) < s.cfg.AdminSessionTTL/2 {
		session.ExpiresAt = now.Add(s.cfg.AdminSessionTTL)
		if err := s.sessionRepo.UpdateAdminExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			logger.WarnContext(ctx, "Failed to renew admin session", "error", err)
		}
	}

	return session, nil
}

func (s *authService) AdminLogout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.DeleteAdmin(ctx, hashToken(token))
}

func (s *authService) RegisterUser(ctx context.Context, req *domain.RegisterUserRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	breached, err := s.breach.IsBreached(ctx, req.Password)
	if err != nil {
		// The strength check failing is a hard failure, never an approval.
		return nil, err
	}
	if breached {
		return nil, domain.Validationf("password appears in known data breaches, pick another")
	}

	start := domain.TimeOfDay(0)
	end := domain.TimeOfDay(0)
	if req.ScheduleStart != "" || req.ScheduleEnd != "" {
		if start, err = domain.ParseTimeOfDay(req.ScheduleStart); err != nil {
			return nil, err
		}
		if end, err = domain.ParseTimeOfDay(req.ScheduleEnd); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, req.Username, hash, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: username already taken", domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) SetUserDisabled(ctx context.Context, id int64, disabled bool) error {
	if err := s.userRepo.SetDisabled(ctx, id, disabled); err != nil {
		return err
	}
	if disabled {
		revoked, err := s.sessionRepo.DeleteForUser(ctx, id)
		if err != nil {
			logger.WarnContext(ctx, "Failed to revoke sessions of disabled user", "error", err, "user_id", id)
		}
		if revoked > 0 {
			if err := s.eventBus.Publish(ctx, events.SessionRevoked, events.SessionEvent{
				UserID:    id,
				Timestamp: s.now(),
			}); err != nil {
				logger.WarnContext(ctx, "Failed to publish session event", "error", err)
			}
		}
		if err := s.eventBus.Publish(ctx, events.UserDisabled, events.SessionEvent{
			UserID:    id,
			Timestamp: s.now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish user event", "error", err)
		}
	}
	return nil
}

func (s *authService) UpdateUserSchedule(ctx context.Context, id int64, req *domain.UpdateScheduleRequest) error {
	start, err := domain.ParseTimeOfDay(req.ScheduleStart)
	if err != nil {
		return err
	}
	end, err := domain.ParseTimeOfDay(req.ScheduleEnd)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateSchedule(ctx, id, start, end)
}

func (s *authService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}
