package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookswap/events"
	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/store"
	"github.com/kevinaaaquil/bookswap/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=accounts.go -destination=mock_accounts.go -package=service

const (
	// MaxFailedLogins is the number of failed logins that locks an account.
	MaxFailedLogins = 5
	// LockoutWindow is how long a lock lasts, counted from the last failed login.
	LockoutWindow = 15 * time.Minute

	maxProfileKeys     = 20
	maxProfileValueLen = 500
)

// UserStore is the persistence the accounts component needs.
type UserStore interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsernameOrEmail(ctx context.Context, username, email string, exclude primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	RecordLoginFailure(ctx context.Context, id primitive.ObjectID, at time.Time, reset bool) error
	RecordLoginSuccess(ctx context.Context, id primitive.ObjectID, at time.Time) error
	UpdateUser(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Generate(userID string) (string, error)
	Parse(token string) (string, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries optional changes. A new password requires CurrentPassword.
// Profile entries with an empty value remove that key.
type UpdateProfileInput struct {
	Username        *string           `json:"username" validate:"omitempty,username"`
	Email           *string           `json:"email" validate:"omitempty,email,max=254"`
	CurrentPassword string            `json:"currentPassword"`
	NewPassword     *string           `json:"newPassword" validate:"omitempty,password"`
	Profile         map[string]string `json:"profile"`
}

type SessionUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session is returned by register and login.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// Accounts handles registration, login with lockout, token verification and profiles.
type Accounts struct {
	users  UserStore
	tokens TokenIssuer
	events events.Publisher
	cost   int
	now    func() time.Time
}

func NewAccounts(users UserStore, tokens TokenIssuer, publisher events.Publisher, bcryptCost int) *Accounts {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Accounts{
		users:  users,
		tokens: tokens,
		events: publisher,
		cost:   bcryptCost,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active user with role "user" and returns a session for it.
func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	existing, err := a.users.UserByUsernameOrEmail(ctx, in.Username, in.Email, primitive.NilObjectID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		JoinDate: a.now().UTC(),
		IsActive: true,
		Role:     models.RoleUser,
	}
	id, err := a.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id

	session, err := a.session(user)
	if err != nil {
		return nil, err
	}
	a.publish(ctx, events.New(events.UserRegistered, id.Hex(), map[string]string{"username": user.Username}))
	return session, nil
}

// Login checks credentials. An account with MaxFailedLogins failures is refused with a
// *LockedError until LockoutWindow has passed since its last failure, even if the
// password is right.
func (a *Accounts) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	user, err := a.users.UserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := a.now().UTC()
	var sinceLastFailure time.Duration = -1
	if user.LastFailedLogin != nil {
		sinceLastFailure = now.Sub(*user.LastFailedLogin)
	}
	if user.FailedLoginAttempts >= MaxFailedLogins && sinceLastFailure >= 0 && sinceLastFailure < LockoutWindow {
		return nil, &LockedError{Remaining: LockoutWindow - sinceLastFailure}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		// Failures older than the window no longer count.
		reset := sinceLastFailure >= LockoutWindow
		attempts := user.FailedLoginAttempts + 1
		if reset {
			attempts = 1
		}
		if err := a.users.RecordLoginFailure(ctx, user.ID, now, reset); err != nil {
			return nil, fmt.Errorf("record login failure: %w", err)
		}
		logger.Log.Warnw("failed login", "user_id", user.ID.Hex(), "attempts", attempts)
		if attempts == MaxFailedLogins {
			a.publish(ctx, events.New(events.UserLocked, user.ID.Hex(), nil))
		}
		return nil, ErrInvalidCredentials
	}

	if err := a.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return a.session(user)
}

// VerifyToken resolves a session token to its active user.
func (a *Accounts) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := a.tokens.Parse(token)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	user, err := a.users.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrNotAuthorized
	}
	return user, nil
}

// UpdateProfile applies the requested changes to user and returns the stored result.
func (a *Accounts) UpdateProfile(ctx context.Context, user *models.User, in UpdateProfileInput) (*models.User, error) {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
	}
	if err := check(in); err != nil {
		return nil, err
	}

	var patch models.UserPatch
	if in.Username != nil && *in.Username != user.Username {
		patch.Username = in.Username
	}
	if in.Email != nil && *in.Email != user.Email {
		patch.Email = in.Email
	}
	if err := profilePatch(&patch, user.Profile, in.Profile); err != nil {
		return nil, err
	}

	if in.NewPassword != nil {
		if in.CurrentPassword == "" {
			return nil, invalid("currentPassword", "currentPassword is required to change the password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.NewPassword), a.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		patch.Password = &h
	}

	if patch.Empty() {
		return nil, ErrNoUpdates
	}

	if patch.Username != nil || patch.Email != nil {
		var username, email string
		if patch.Username != nil {
			username = *patch.Username
		}
		if patch.Email != nil {
			email = *patch.Email
		}
		taken, err := a.users.UserByUsernameOrEmail(ctx, username, email, user.ID)
		if err != nil {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
		if taken != nil {
			return nil, ErrUserExists
		}
	}

	updated, err := a.users.UpdateUser(ctx, user.ID, patch)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

func profilePatch(patch *models.UserPatch, current, changes map[string]string) error {
	if len(changes) > maxProfileKeys {
		return invalid("profile", fmt.Sprintf("profile accepts at most %d fields", maxProfileKeys))
	}
	for k, v := range changes {
		if !profileKeyPattern.MatchString(k) {
			return invalid("profile", fmt.Sprintf("profile field %q must be 1-32 letters, digits or underscores", k))
		}
		v = utils.SanitizeText(v)
		if len(v) > maxProfileValueLen {
			return invalid("profile", fmt.Sprintf("profile field %q must be at most %d characters", k, maxProfileValueLen))
		}
		old, exists := current[k]
		switch {
		case v == "" && exists:
			patch.ProfileUnset = append(patch.ProfileUnset, k)
		case v != "" && (!exists || old != v):
			if patch.ProfileSet == nil {
				patch.ProfileSet = make(map[string]string)
			}
			patch.ProfileSet[k] = v
		}
	}
	return nil
}

// PublicProfile returns the public fields of an active user.
func (a *Accounts) PublicProfile(ctx context.Context, id string) (*models.PublicProfile, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	user, err := a.users.UserByID(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrNotFound
	}
	p := user.Public()
	return &p, nil
}

// DeleteSelf permanently removes the user's account.
func (a *Accounts) DeleteSelf(ctx context.Context, user *models.User) error {
	ok, err := a.users.DeleteUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	a.publish(ctx, events.New(events.UserDeleted, user.ID.Hex(), nil))
	return nil
}

func (a *Accounts) session(user *models.User) (*Session, error) {
	tok, err := a.tokens.Generate(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		Token: tok,
		User:  SessionUser{ID: user.ID.Hex(), Username: user.Username, Email: user.Email},
	}, nil
}

func (a *Accounts) publish(ctx context.Context, e events.Event) {
	if err := a.events.Publish(ctx, e); err != nil {
		logger.Log.Warnw("publish event failed", "type", e.Type, "subject", e.Subject, "error", err)
	}
}
