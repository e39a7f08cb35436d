package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
	"github.com/asgr-game/account-service/internal/metrics"
)

const (
	defaultTokenTTL = 30 * time.Minute
	tokenTypeBearer = "bearer"

	defaultListLimit = 50
	maxListLimit     = 200
	maxNameLength    = 64
)

// AccountDeps groups the collaborators of AccountService. Denylist, Mail,
// Origin and Tx are optional.
type AccountDeps struct {
	Users        ports.UserRepository
	Confirmation *ConfirmationService
	Hasher       ports.PasswordHasher
	Issuer       ports.TokenIssuer
	Events       ports.EventLog
	Tx           ports.Transactor
	Denylist     ports.TokenDenylist
	Mail         ports.MailDispatcher
	Origin       ports.OriginLookup
	TokenTTL     time.Duration
	Now          func() time.Time
}

// AccountService implements registration, login, email confirmation and
// password rotation.
type AccountService struct {
	users    ports.UserRepository
	confirm  *ConfirmationService
	hasher   ports.PasswordHasher
	issuer   ports.TokenIssuer
	events   ports.EventLog
	tx       ports.Transactor
	denylist ports.TokenDenylist
	mail     ports.MailDispatcher
	origin   ports.OriginLookup
	tokenTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

var _ ports.AccountService = (*AccountService)(nil)

func NewAccountService(deps AccountDeps, log zerolog.Logger) *AccountService {
	s := &AccountService{
		users:    deps.Users,
		confirm:  deps.Confirmation,
		hasher:   deps.Hasher,
		issuer:   deps.Issuer,
		events:   deps.Events,
		tx:       deps.Tx,
		denylist: deps.Denylist,
		mail:     deps.Mail,
		origin:   deps.Origin,
		tokenTTL: deps.TokenTTL,
		now:      deps.Now,
		log:      log,
	}
	if s.tx == nil {
		s.tx = directTx{}
	}
	if s.denylist == nil {
		s.denylist = noopDenylist{}
	}
	if s.mail == nil {
		s.mail = noopMail{}
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = defaultTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates an account and its first confirmation token in one unit
// of work. The audit append and the mail dispatch happen after commit and
// never fail the registration.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (ports.RegisterResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return ports.RegisterResult{}, domain.ErrValidation
	}

	// Fast path only: the unique index is what actually guards duplicates.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("email_taken").Inc()
		return ports.RegisterResult{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return ports.RegisterResult{}, storeErr("register: lookup email", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return ports.RegisterResult{}, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	var created *domain.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.Create(ctx, &domain.User{
			Email:        email,
			PasswordHash: hash,
			UserType:     domain.UserTypePlayer,
			IsActive:     true,
			IsValid:      false,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		if _, err := s.confirm.Issue(ctx, user.ID, now); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.RegistrationsTotal.WithLabelValues("email_taken").Inc()
			return ports.RegisterResult{}, domain.ErrEmailTaken
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("registration rolled back")
		return ports.RegisterResult{}, storeErr("register", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("user_id", created.ID).Msg("account registered")

	audit := s.audit(ctx, domain.EventNewUserAccount, created.ID,
		fmt.Sprintf("New user account. email: %s, user_id: %s", created.Email, created.ID), in.ClientIP)

	s.mail.Enqueue(created.ID)

	return ports.RegisterResult{UserID: created.ID, Audit: audit}, nil
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error after the same amount of bcrypt work.
// Accounts whose email is not yet confirmed may log in.
func (s *AccountService) Login(ctx context.Context, in ports.LoginInput) (ports.LoginResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return ports.LoginResult{}, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(in.Password, s.dummy())
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return ports.LoginResult{}, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return ports.LoginResult{}, storeErr("login: lookup email", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		s.audit(ctx, domain.EventLoginFailed, user.ID,
			fmt.Sprintf("Login failed. user_id: %s", user.ID), in.ClientIP)
		return ports.LoginResult{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginsTotal.WithLabelValues("disabled").Inc()
		return ports.LoginResult{}, domain.ErrAccountDisabled
	}

	token, claims, err := s.issuer.Issue(domain.Claims{
		Subject:  user.Email,
		UserID:   user.ID,
		UserType: user.UserType,
	}, s.tokenTTL)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return ports.LoginResult{}, fmt.Errorf("login: issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	audit := s.audit(ctx, domain.EventLogIn, user.ID,
		fmt.Sprintf("Login successful. email: %s, user_id: %s", user.Email, user.ID), in.ClientIP)

	return ports.LoginResult{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   claims.ExpiresAt,
		Claims:      claims,
		Audit:       audit,
	}, nil
}

// ConfirmEmail redeems a confirmation token. Only a successful confirmation
// is audited.
func (s *AccountService) ConfirmEmail(ctx context.Context, value string) (ports.AuditOutcome, error) {
	token, err := s.confirm.Confirm(ctx, value, s.now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConfirmationNotFound):
			metrics.EmailConfirmationsTotal.WithLabelValues("not_found").Inc()
		case errors.Is(err, domain.ErrConfirmationConsumed):
			metrics.EmailConfirmationsTotal.WithLabelValues("consumed").Inc()
		default:
			metrics.EmailConfirmationsTotal.WithLabelValues("error").Inc()
		}
		return ports.AuditOutcome{}, err
	}

	metrics.EmailConfirmationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("user_id", token.UserID).Msg("email confirmed")

	return s.audit(ctx, domain.EventConfirmEmail, token.UserID,
		fmt.Sprintf("Email confirmed. user_id: %s", token.UserID), ""), nil
}

// ChangePassword rotates the password of an authenticated user.
func (s *AccountService) ChangePassword(ctx context.Context, in ports.ChangePasswordInput) (ports.AuditOutcome, error) {
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.PasswordChangesTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return ports.AuditOutcome{}, domain.ErrInvalidCredentials
		}
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return ports.AuditOutcome{}, storeErr("change password: lookup user", err)
	}

	if !s.hasher.Verify(in.OldPassword, user.PasswordHash) {
		metrics.PasswordChangesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return ports.AuditOutcome{}, domain.ErrInvalidCredentials
	}
	if in.NewPassword == in.OldPassword {
		metrics.PasswordChangesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return ports.AuditOutcome{}, domain.ErrSamePassword
	}
	if in.NewPassword == "" {
		metrics.PasswordChangesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return ports.AuditOutcome{}, domain.ErrValidation
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return ports.AuditOutcome{}, fmt.Errorf("change password: hash: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return ports.AuditOutcome{}, storeErr("change password: update user", err)
	}

	metrics.PasswordChangesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info().Str("user_id", user.ID).Msg("password changed")

	return s.audit(ctx, domain.EventPasswordChange, user.ID,
		fmt.Sprintf("Password changed. user_id: %s", user.ID), in.ClientIP), nil
}

// Authenticate resolves a bearer token into the caller identity.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return domain.Identity{}, storeErr("authenticate: denylist", err)
	}
	if revoked {
		return domain.Identity{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

// Logout revokes the presented token until it would have expired.
func (s *AccountService) Logout(ctx context.Context, identity domain.Identity) (ports.AuditOutcome, error) {
	if err := s.denylist.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return ports.AuditOutcome{}, storeErr("logout: revoke", err)
	}
	return s.audit(ctx, domain.EventLogOut, identity.UserID,
		fmt.Sprintf("Logout. user_id: %s", identity.UserID), ""), nil
}

// Profile returns the stored account for userID.
func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("profile", err)
	}
	return user, nil
}

// UpdateProfile replaces the first and last name of the caller. Names are
// trimmed; an empty name clears the stored value.
func (s *AccountService) UpdateProfile(ctx context.Context, in ports.UpdateProfileInput) (ports.AuditOutcome, error) {
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if len(first) > maxNameLength || len(last) > maxNameLength {
		return ports.AuditOutcome{}, domain.ErrValidation
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ports.AuditOutcome{}, domain.ErrUserNotFound
		}
		return ports.AuditOutcome{}, storeErr("update profile: lookup user", err)
	}

	user.FirstName, user.LastName = first, last
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return ports.AuditOutcome{}, storeErr("update profile", err)
	}

	return s.audit(ctx, domain.EventUserEdit, user.ID,
		fmt.Sprintf("User edited. user_id: %s, first_name: %s, last_name: %s", user.ID, first, last), in.ClientIP), nil
}

// ListUsers returns a page of accounts in registration order. A limit <= 0
// uses the default page size; larger limits are clamped.
func (s *AccountService) ListUsers(ctx context.Context, in ports.ListUsersInput) ([]*domain.User, error) {
	if in.Actor.Role() != domain.RoleSuperuser {
		return nil, domain.ErrForbidden
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// SetActive activates or deactivates another account. Setting the state an
// account already has is a no-op and is not audited. Deactivated accounts
// can no longer log in; tokens already issued stay valid until expiry.
func (s *AccountService) SetActive(ctx context.Context, in ports.SetActiveInput) (ports.AuditOutcome, error) {
	if in.Actor.Role() != domain.RoleSuperuser {
		return ports.AuditOutcome{}, domain.ErrForbidden
	}
	if in.UserID == "" || in.UserID == in.Actor.UserID {
		return ports.AuditOutcome{}, domain.ErrValidation
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ports.AuditOutcome{}, domain.ErrUserNotFound
		}
		return ports.AuditOutcome{}, storeErr("set active: lookup user", err)
	}
	if user.IsActive == in.Active {
		return ports.AuditOutcome{}, nil
	}

	user.IsActive = in.Active
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return ports.AuditOutcome{}, storeErr("set active", err)
	}

	event, verb := domain.EventDeactivated, "deactivated"
	if in.Active {
		event, verb = domain.EventActivated, "activated"
	}
	s.log.Info().Str("user_id", user.ID).Str("actor_id", in.Actor.UserID).Msg("account " + verb)

	return s.audit(ctx, event, user.ID,
		fmt.Sprintf("Account %s. user_id: %s, by: %s", verb, user.ID, in.Actor.UserID), in.ClientIP), nil
}

// audit appends an event log record. A failed append is reported in the
// outcome and logged; it never fails the operation.
func (s *AccountService) audit(ctx context.Context, event domain.EventType, userID, body, clientIP string) ports.AuditOutcome {
	out := ports.AuditOutcome{Event: event}
	record := &domain.EventLogRecord{
		Type:      event,
		UserID:    userID,
		Body:      body,
		Origin:    s.resolveOrigin(ctx, clientIP),
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Append(ctx, record); err != nil {
		metrics.AuditWriteFailuresTotal.WithLabelValues(event.String()).Inc()
		s.log.Warn().Err(err).
			Str("user_id", userID).
			Str("event_type", event.String()).
			Msg("failed to append audit record")
		out.Err = err
	}
	return out
}

func (s *AccountService) resolveOrigin(ctx context.Context, clientIP string) string {
	if clientIP == "" || s.origin == nil {
		return clientIP
	}
	origin, err := s.origin.Lookup(ctx, clientIP)
	if err != nil {
		s.log.Debug().Err(err).Str("client_ip", clientIP).Msg("origin lookup failed")
		return clientIP
	}
	return origin
}

func (s *AccountService) hashPassword(plaintext string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(plaintext)
	metrics.PasswordHashDuration.Observe(time.Since(start).Seconds())
	return hash, err
}

// dummy returns a real digest to verify against when the email is unknown.
func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("asgr-timing-equaliser")
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

type noopDenylist struct{}

func (noopDenylist) Revoke(context.Context, string, time.Time) error { return nil }
func (noopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type noopMail struct{}

func (noopMail) Enqueue(string) {}
