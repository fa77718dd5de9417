package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/mail"
	"github.com/advocacia-ai/painel/internal/metrics"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 200
	maxOABDigits      = 8
)

// AuthConfig holds token lifetimes and link settings for AuthService.
type AuthConfig struct {
	AccessTTL time.Duration
	ResetTTL  time.Duration
	VerifyTTL time.Duration

	// PublicURL is the web panel base used in email links.
	PublicURL string

	// Login throttling per account. Zero disables it.
	LoginAttemptsPerHour int
	LoginBurst           int
}

// AuthService handles registration, login and the credential lifecycle.
type AuthService struct {
	users   UserStore
	tokens  *auth.TokenIssuer
	mailer  Mailer
	limiter LoginLimiter
	cfg     AuthConfig
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAuthService creates a new AuthService. limiter may be nil.
func NewAuthService(users UserStore, tokens *auth.TokenIssuer, mailer Mailer, limiter LoginLimiter, cfg AuthConfig, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	return &AuthService{
		users:   users,
		tokens:  tokens,
		mailer:  mailer,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With("component", "service.auth"),
		metrics: recorder,
		now:     time.Now,
	}
}

// RegisterInput defines input for registering a lawyer.
type RegisterInput struct {
	Email    string
	Password string
	FullName string

	Name      string
	Kind      model.ProfileKind
	TaxID     string
	OABNumber string
	OABState  string
	CNPJ      string
	Phone     string
	Areas     []string
	Cities    []string
	States    []string
	Schedule  model.Schedule
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	UserID      string
	Email       string
}

// Register creates the account and its profile, returns an access token and
// enqueues a confirmation email. Uniqueness is decided by the database; the
// pre-checks only give a friendlier error on the common path.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, profile, err := s.buildLawyer(input)
	if err != nil {
		return nil, err
	}

	if exists, err := s.users.EmailExists(ctx, user.Email); err == nil && exists {
		return nil, ErrEmailTaken
	}
	if exists, err := s.users.OABExists(ctx, profile.OABNumber, profile.OABState); err == nil && exists {
		return nil, ErrOABTaken
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.users.CreateLawyer(ctx, user, profile); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrOABExists):
			return nil, ErrOABTaken
		case errors.Is(err, repository.ErrCNPJExists):
			return nil, ErrCNPJTaken
		}
		return nil, fmt.Errorf("failed to create lawyer: %w", err)
	}

	s.metrics.IncRegistration()
	s.logger.InfoContext(ctx, "lawyer registered", "user_id", user.ID, "oab_estado", profile.OABState)

	result, err := s.issueAccess(user)
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, user)
	return result, nil
}

func (s *AuthService) buildLawyer(input RegisterInput) (*model.User, *model.LawyerProfile, error) {
	email := model.NormalizeEmail(input.Email)
	if !model.ValidEmail(email) {
		return nil, nil, invalid("email", "must be a valid email address")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" || len(fullName) > maxNameLength {
		return nil, nil, invalid("full_name", "is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fullName
	}
	if len(name) > maxNameLength {
		return nil, nil, invalid("nome", "is too long")
	}

	kind := input.Kind
	if kind == "" {
		kind = model.ProfileIndividual
	}
	if !kind.IsValid() {
		return nil, nil, invalid("tipo", "must be individual or sociedade")
	}

	if !model.ValidTaxID(input.TaxID) {
		return nil, nil, invalid("cpf_cnpj", "must be a valid CPF or CNPJ")
	}

	oabNumber := model.OnlyDigits(input.OABNumber)
	if oabNumber == "" || len(oabNumber) > maxOABDigits {
		return nil, nil, invalid("oab_numero", "must contain 1 to 8 digits")
	}
	oabState := strings.ToUpper(strings.TrimSpace(input.OABState))
	if !model.ValidUF(oabState) {
		return nil, nil, invalid("oab_estado", "must be a Brazilian state code")
	}

	var cnpj string
	if strings.TrimSpace(input.CNPJ) != "" {
		if !model.ValidCNPJ(input.CNPJ) {
			return nil, nil, invalid("cnpj", "must be a valid CNPJ")
		}
		cnpj = model.OnlyDigits(input.CNPJ)
	}

	states, err := normalizeStates("estados", input.States)
	if err != nil {
		return nil, nil, err
	}
	if bad := input.Schedule.UnknownDays(); len(bad) > 0 {
		return nil, nil, invalid("horario_atendimento", "unknown day "+bad[0])
	}

	now := s.now().UTC()
	user := &model.User{
		ID:        generateULID(),
		Email:     email,
		FullName:  fullName,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	profile := &model.LawyerProfile{
		ID:        generateULID(),
		UserID:    user.ID,
		Name:      name,
		Kind:      kind,
		TaxID:     model.OnlyDigits(input.TaxID),
		OABNumber: oabNumber,
		OABState:  oabState,
		CNPJ:      cnpj,
		Phone:     strings.TrimSpace(input.Phone),
		Areas:     trimAll(input.Areas),
		Cities:    trimAll(input.Cities),
		States:    states,
		Schedule:  input.Schedule,
		Plan:      model.DefaultPlan(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return user, profile, nil
}

// Login verifies credentials and returns an access token. Unknown emails and
// wrong passwords are indistinguishable; an inactive account is only reported
// once the password has been verified.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.IncLogin("unauthorized")
		return nil, ErrInvalidCredentials
	}

	if err := s.checkLoginLimit(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			auth.DummyVerify(password)
			s.metrics.IncLogin("unauthorized")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin("unauthorized")
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.metrics.IncLogin("forbidden")
		return nil, ErrAccountInactive
	}

	s.metrics.IncLogin("success")
	return s.issueAccess(user)
}

func (s *AuthService) checkLoginLimit(ctx context.Context, email string) error {
	if s.limiter == nil || s.cfg.LoginAttemptsPerHour <= 0 {
		return nil
	}
	result, err := s.limiter.CheckLoginRateLimit(ctx, auth.Fingerprint(email), s.cfg.LoginAttemptsPerHour, s.cfg.LoginBurst)
	if err != nil {
		// Fail open
		s.logger.WarnContext(ctx, "login rate limit check failed", "error", err)
		return nil
	}
	if !result.Allowed {
		s.metrics.IncLogin("rate_limited")
		return ErrRateLimited
	}
	return nil
}

// Resolve maps an access token to a fresh Principal. It is the identity
// resolver behind every protected route and never caches its result: the
// account is re-read on each call so deactivation takes effect immediately.
func (s *AuthService) Resolve(ctx context.Context, token string) (model.Principal, error) {
	if token == "" {
		return s.reject(ReasonMissing)
	}

	claims, err := s.tokens.Validate(token, auth.PurposeAccess)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpired):
			return s.reject(ReasonExpired)
		case errors.Is(err, auth.ErrPurposeMismatch):
			return s.reject(ReasonPurpose)
		default:
			return s.reject(ReasonInvalid)
		}
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.reject(ReasonUnknownSubject)
		}
		return model.Principal{}, fmt.Errorf("failed to resolve principal: %w", err)
	}

	if !user.IsActive {
		return s.reject(ReasonInactive)
	}

	return user.Principal(), nil
}

func (s *AuthService) reject(reason string) (model.Principal, error) {
	s.metrics.IncAuthFailure(reason)
	return model.Principal{}, &AuthError{Reason: reason}
}

// RequestPasswordReset emails a reset link to an existing active account.
// The outcome is the same whether or not the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return invalid("email", "must be a valid email address")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := s.tokens.IssueBound(user.Email, auth.PurposeReset, s.cfg.ResetTTL, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	s.mailer.PublishAsync(mail.PasswordResetEmail(user.Email, s.link("/redefinir-senha", token)))
	return nil
}

// ResetPassword sets a new password using a reset token. A reset token is
// bound to the password hash it was issued against, so it stops working once
// any password change lands.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, claims, err := s.userFromToken(ctx, token, auth.PurposeReset)
	if err != nil {
		return err
	}
	if err := s.tokens.CheckBinding(claims, user.PasswordHash); err != nil {
		s.logger.WarnContext(ctx, "stale reset token", "user_id", user.ID, "token_id", claims.ID)
		return ErrInvalidToken
	}
	if !user.IsActive {
		return ErrAccountInactive
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

// ConfirmEmail marks the account's email as verified using a confirmation token.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	user, _, err := s.userFromToken(ctx, token, auth.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the principal's account. Outstanding tokens stop
// working on their next use.
func (s *AuthService) Deactivate(ctx context.Context, p model.Principal) error {
	if err := s.users.SetUserActive(ctx, p.ID, false, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to deactivate account: %w", err)
	}
	s.logger.InfoContext(ctx, "account deactivated", "user_id", p.ID)
	return nil
}

func (s *AuthService) userFromToken(ctx context.Context, token string, purpose auth.Purpose) (*model.User, *auth.Claims, error) {
	claims, err := s.tokens.Validate(token, purpose)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, claims, nil
}

func (s *AuthService) issueAccess(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.Email, auth.PurposeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return &AuthResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.AccessTTL,
		UserID:      user.ID,
		Email:       user.Email,
	}, nil
}

// sendConfirmation enqueues the confirmation email. Failures are logged by
// the publisher and never affect the registration.
func (s *AuthService) sendConfirmation(ctx context.Context, user *model.User) {
	token, err := s.tokens.Issue(user.Email, auth.PurposeVerifyEmail, s.cfg.VerifyTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to issue confirmation token", "user_id", user.ID, "error", err)
		return
	}
	s.mailer.PublishAsync(mail.ConfirmationEmail(user.Email, s.link("/confirmar-email", token)))
}

func (s *AuthService) link(path, token string) string {
	return s.cfg.PublicURL + path + "?token=" + url.QueryEscape(token)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return invalid("password", fmt.Sprintf("must be at most %d characters", maxPasswordLength))
	}
	return nil
}

func normalizeStates(field string, states []string) ([]string, error) {
	out := make([]string, 0, len(states))
	for _, st := range states {
		st = strings.ToUpper(strings.TrimSpace(st))
		if !model.ValidUF(st) {
			return nil, invalid(field, "unknown state "+st)
		}
		out = append(out, st)
	}
	return out, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
