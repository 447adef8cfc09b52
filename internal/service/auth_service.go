package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"kidshield/internal/metrics"
	"kidshield/internal/repository"
	"kidshield/internal/security"
	"kidshield/internal/validation"
)

var (
	// ErrEmailExists hides which constraint rejected a registration
	ErrEmailExists = errors.New("email exists")
	// ErrInvalidCredentials is returned for an unknown email and a wrong password alike
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService handles registration, login and token verification
type AuthService struct {
	families *repository.FamilyRepository
	tokens   *security.TokenManager
	logger   zerolog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(families *repository.FamilyRepository, tokens *security.TokenManager, logger zerolog.Logger) *AuthService {
	return &AuthService{
		families: families,
		tokens:   tokens,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// NormalizeEmail trims and lowercases an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a family account and returns a signed token for it
func (s *AuthService) Register(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return "", &validation.Error{Field: "email", Message: "email and password required"}
	}
	if err := validation.ValidateEmail(email); err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return "", err
	}
	// bcrypt only reads the first 72 bytes and refuses anything longer
	if len(password) > security.MaxPasswordBytes {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return "", &validation.Error{Field: "password", Message: "password must be at most 72 bytes"}
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	family, err := s.families.CreateFamily(ctx, email, passwordHash)
	if errors.Is(err, repository.ErrDuplicate) {
		metrics.Registrations.WithLabelValues("conflict").Inc()
		return "", ErrEmailExists
	}
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(family.ID, family.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.Registrations.WithLabelValues("created").Inc()
	s.logger.Info().Str("family_id", family.ID).Msg("family registered")
	return token, nil
}

// Login checks credentials and returns a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return "", ErrInvalidCredentials
	}

	family, err := s.families.GetFamilyByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if family == nil || !security.CheckPassword(password, family.PasswordHash) {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(family.ID, family.Email)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	return token, nil
}

// VerifyToken validates a bearer token and returns its claims
func (s *AuthService) VerifyToken(token string) (*security.Claims, error) {
	return s.tokens.Verify(token)
}
