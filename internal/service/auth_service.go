package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"courtportal/internal/domain"
	"courtportal/internal/security"
)

// resetTokenTTL bounds how long an issued password-reset token stays
// redeemable.
const resetTokenTTL = time.Hour

// minPasswordLength applies to passwords chosen through the reset flow.
const minPasswordLength = 8

// AuthService handles registration, login, and logout.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

// Register creates a new account. Only administrators may create judge or
// admin accounts, so the caller's role is checked before anything else.
func (s *AuthService) Register(ctx context.Context, caller *domain.User, in RegisterInput) (*domain.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("name, email and password are required: %w", domain.ErrInvalidInput)
	}
	switch in.Role {
	case domain.RoleAdmin, domain.RoleJudge:
		if caller == nil || caller.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("only administrators may create %s accounts: %w", in.Role, domain.ErrPermissionDenied)
		}
	case domain.RoleGuest:
		// self-service
	default:
		return nil, fmt.Errorf("unknown role %q: %w", in.Role, domain.ErrInvalidInput)
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := in.Email
	user := &domain.User{
		Name:           in.Name,
		Email:          &email,
		Role:           in.Role,
		HashedPassword: hashed,
		IsActive:       true,
		IsOnline:       false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("incorrect email or password: %w", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is inactive: %w", domain.ErrUnauthorized)
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, fmt.Errorf("incorrect email or password: %w", domain.ErrUnauthorized)
	}

	if err := s.users.SetOnlineStatus(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	token, err := s.tokens.CreateForUser(user)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.users.SetOnlineStatus(ctx, userID, false)
}

// EnsureAdmin seeds the configured administrator account if no account
// with that email exists yet. Safe to call on every startup.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin account: %w", err)
	}
	if existing != nil {
		return nil
	}
	hashed, err := s.hash.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	addr := email
	admin := &domain.User{
		Name:           "Administrator",
		Email:          &addr,
		Role:           domain.RoleAdmin,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	log.Printf("[auth] seeded administrator account %s", email)
	return nil
}

// UpdateProfile changes the caller's own name or email. Empty fields
// keep their current value.
func (s *AuthService) UpdateProfile(ctx context.Context, caller *domain.User, name, email string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", caller.ID, domain.ErrNotFound)
	}
	if name != "" {
		user.Name = name
	}
	if email != "" && (user.Email == nil || *user.Email != email) {
		if taken, err := s.users.GetByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		} else if taken != nil && taken.ID != user.ID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		user.Email = &email
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns one account. Admin only.
func (s *AuthService) GetUser(ctx context.Context, caller *domain.User, id int64) (*domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may inspect accounts: %w", domain.ErrPermissionDenied)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

// UpdateUserInput carries partial account changes; nil fields are left
// untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Role     *domain.Role
	IsActive *bool
}

// UpdateUser applies an administrator's changes to another account.
func (s *AuthService) UpdateUser(ctx context.Context, caller *domain.User, id int64, in UpdateUserInput) (*domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("only administrators may update accounts: %w", domain.ErrPermissionDenied)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		if taken, err := s.users.GetByEmail(ctx, *in.Email); err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		} else if taken != nil && taken.ID != user.ID {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		user.Email = in.Email
	}
	if in.Role != nil {
		switch *in.Role {
		case domain.RoleAdmin, domain.RoleJudge, domain.RoleGuest:
			user.Role = *in.Role
		default:
			return nil, fmt.Errorf("unknown role %q: %w", *in.Role, domain.ErrInvalidInput)
		}
	}
	if in.IsActive != nil {
		if !*in.IsActive && user.ID == caller.ID {
			return nil, fmt.Errorf("cannot deactivate own account: %w", domain.ErrInvalidInput)
		}
		user.IsActive = *in.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateUser retires an account. The row stays so message history
// keeps resolving; the account can no longer sign in. Admin only.
func (s *AuthService) DeactivateUser(ctx context.Context, caller *domain.User, id int64) error {
	if caller.Role != domain.RoleAdmin {
		return fmt.Errorf("only administrators may deactivate accounts: %w", domain.ErrPermissionDenied)
	}
	if id == caller.ID {
		return fmt.Errorf("cannot deactivate own account: %w", domain.ErrInvalidInput)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	user.IsActive = false
	user.IsOnline = false
	return s.users.Update(ctx, user)
}

// IssueResetToken creates a one-time password-reset token for the given
// account. Delivery to the account holder happens out of band. Admin
// only.
func (s *AuthService) IssueResetToken(ctx context.Context, caller *domain.User, id int64) (string, error) {
	if caller.Role != domain.RoleAdmin {
		return "", fmt.Errorf("only administrators may issue reset tokens: %w", domain.ErrPermissionDenied)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	token := uuid.NewString()
	if err := s.users.SetResetToken(ctx, id, token, time.Now().Add(resetTokenTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword redeems a reset token: the password is replaced, the
// token is consumed, and the user is signed in.
func (s *AuthService) ResetPassword(ctx context.Context, email, token, newPassword string) (*TokenResponse, error) {
	if len(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrInvalidInput)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("invalid reset token: %w", domain.ErrUnauthorized)
	}
	if user.ResetToken == nil || *user.ResetToken != token {
		return nil, fmt.Errorf("invalid reset token: %w", domain.ErrUnauthorized)
	}
	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		return nil, fmt.Errorf("reset token expired: %w", domain.ErrUnauthorized)
	}

	hashed, err := s.hash.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.HashedPassword = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.users.SetOnlineStatus(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	access, err := s.tokens.CreateForUser(user)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", domain.ErrUnauthorized)
	}
	id, ok := security.Subject(claims)
	if !ok {
		return nil, fmt.Errorf("token has no subject: %w", domain.ErrUnauthorized)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, errors.New("account not found or inactive")
	}
	return user, nil
}
