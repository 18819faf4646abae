package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/kevinaaaquil/bookswap/events"
	"github.com/kevinaaaquil/bookswap/models"
	"github.com/kevinaaaquil/bookswap/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestAccounts(t *testing.T) (*Accounts, *MockUserStore, *MockTokenIssuer, *recordingPublisher) {
	ctrl := gomock.NewController(t)
	users := NewMockUserStore(ctrl)
	tokens := NewMockTokenIssuer(ctrl)
	pub := &recordingPublisher{}
	a := NewAccounts(users, tokens, pub, bcrypt.MinCost)
	a.now = func() time.Time { return fixedNow }
	return a, users, tokens, pub
}

func TestAccounts_Register(t *testing.T) {
	id := primitive.NewObjectID()

	tests := []struct {
		name    string
		in      RegisterInput
		setup   func(users *MockUserStore, tokens *MockTokenIssuer)
		wantErr error
		field   string
	}{
		{
			name: "success",
			in:   RegisterInput{Username: "alice123", Email: " A@B.com ", Password: "Abcdef12"},
			setup: func(users *MockUserStore, tokens *MockTokenIssuer) {
				users.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice123", "a@b.com", primitive.NilObjectID).Return(nil, nil)
				users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, u *models.User) (primitive.ObjectID, error) {
						assert.Equal(t, "a@b.com", u.Email)
						assert.True(t, u.IsActive)
						assert.Equal(t, models.RoleUser, u.Role)
						assert.Equal(t, fixedNow, u.JoinDate)
						assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("Abcdef12")))
						return id, nil
					})
				tokens.EXPECT().Generate(id.Hex()).Return("tok", nil)
			},
		},
		{
			name:  "short username",
			in:    RegisterInput{Username: "ab", Email: "a@b.com", Password: "Abcdef12"},
			setup: func(*MockUserStore, *MockTokenIssuer) {},
			field: "username",
		},
		{
			name:  "weak password",
			in:    RegisterInput{Username: "alice123", Email: "a@b.com", Password: "abcdefgh"},
			setup: func(*MockUserStore, *MockTokenIssuer) {},
			field: "password",
		},
		{
			name:  "bad email",
			in:    RegisterInput{Username: "alice123", Email: "not-an-email", Password: "Abcdef12"},
			setup: func(*MockUserStore, *MockTokenIssuer) {},
			field: "email",
		},
		{
			name: "taken",
			in:   RegisterInput{Username: "alice123", Email: "a@b.com", Password: "Abcdef12"},
			setup: func(users *MockUserStore, _ *MockTokenIssuer) {
				users.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice123", "a@b.com", primitive.NilObjectID).
					Return(&models.User{ID: primitive.NewObjectID()}, nil)
			},
			wantErr: ErrUserExists,
		},
		{
			name: "lost race on unique index",
			in:   RegisterInput{Username: "alice123", Email: "a@b.com", Password: "Abcdef12"},
			setup: func(users *MockUserStore, _ *MockTokenIssuer) {
				users.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
				users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(primitive.NilObjectID, store.ErrDuplicate)
			},
			wantErr: ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, users, tokens, pub := newTestAccounts(t)
			tt.setup(users, tokens)

			session, err := a.Register(context.Background(), tt.in)

			switch {
			case tt.field != "":
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.field)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "tok", session.Token)
				assert.Equal(t, SessionUser{ID: id.Hex(), Username: "alice123", Email: "a@b.com"}, session.User)
				assert.Equal(t, []string{events.UserRegistered}, pub.types())
			}
		})
	}
}

func TestAccounts_Login(t *testing.T) {
	id := primitive.NewObjectID()
	pw := hash(t, "Abcdef12")
	ago := func(d time.Duration) *time.Time {
		at := fixedNow.Add(-d)
		return &at
	}

	tests := []struct {
		name       string
		password   string
		user       *models.User
		setup      func(users *MockUserStore, tokens *MockTokenIssuer)
		wantErr    error
		wantLocked int
		wantEvents []string
	}{
		{
			name:     "success clears failures",
			password: "Abcdef12",
			user:     &models.User{ID: id, Email: "a@b.com", Password: pw, IsActive: true, FailedLoginAttempts: 3, LastFailedLogin: ago(time.Minute)},
			setup: func(users *MockUserStore, tokens *MockTokenIssuer) {
				users.EXPECT().RecordLoginSuccess(gomock.Any(), id, fixedNow).Return(nil)
				tokens.EXPECT().Generate(id.Hex()).Return("tok", nil)
			},
		},
		{
			name:     "unknown email",
			password: "Abcdef12",
			setup:    func(*MockUserStore, *MockTokenIssuer) {},
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			password: "Abcdef12",
			user:     &models.User{ID: id, Password: pw, IsActive: false},
			setup:    func(*MockUserStore, *MockTokenIssuer) {},
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "wrong password counts a failure",
			password: "Wrong1234",
			user:     &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 1, LastFailedLogin: ago(time.Minute)},
			setup: func(users *MockUserStore, _ *MockTokenIssuer) {
				users.EXPECT().RecordLoginFailure(gomock.Any(), id, fixedNow, false).Return(nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "fifth failure locks",
			password: "Wrong1234",
			user:     &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 4, LastFailedLogin: ago(time.Minute)},
			setup: func(users *MockUserStore, _ *MockTokenIssuer) {
				users.EXPECT().RecordLoginFailure(gomock.Any(), id, fixedNow, false).Return(nil)
			},
			wantErr:    ErrInvalidCredentials,
			wantEvents: []string{events.UserLocked},
		},
		{
			name:       "locked even with right password",
			password:   "Abcdef12",
			user:       &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 5, LastFailedLogin: ago(3 * time.Minute)},
			setup:      func(*MockUserStore, *MockTokenIssuer) {},
			wantLocked: 12,
		},
		{
			name:       "remaining minutes round up",
			password:   "Wrong1234",
			user:       &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 7, LastFailedLogin: ago(14*time.Minute + 30*time.Second)},
			setup:      func(*MockUserStore, *MockTokenIssuer) {},
			wantLocked: 1,
		},
		{
			name:     "lock expired",
			password: "Abcdef12",
			user:     &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 5, LastFailedLogin: ago(16 * time.Minute)},
			setup: func(users *MockUserStore, tokens *MockTokenIssuer) {
				users.EXPECT().RecordLoginSuccess(gomock.Any(), id, fixedNow).Return(nil)
				tokens.EXPECT().Generate(id.Hex()).Return("tok", nil)
			},
		},
		{
			name:     "stale failures restart the count",
			password: "Wrong1234",
			user:     &models.User{ID: id, Password: pw, IsActive: true, FailedLoginAttempts: 5, LastFailedLogin: ago(time.Hour)},
			setup: func(users *MockUserStore, _ *MockTokenIssuer) {
				users.EXPECT().RecordLoginFailure(gomock.Any(), id, fixedNow, true).Return(nil)
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, users, tokens, pub := newTestAccounts(t)
			users.EXPECT().UserByEmail(gomock.Any(), "a@b.com").Return(tt.user, nil)
			tt.setup(users, tokens)

			session, err := a.Login(context.Background(), LoginInput{Email: "A@b.com", Password: tt.password})

			switch {
			case tt.wantLocked > 0:
				var locked *LockedError
				require.ErrorAs(t, err, &locked)
				assert.Equal(t, tt.wantLocked, locked.Minutes())
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "tok", session.Token)
			}
			assert.Equal(t, tt.wantEvents, pub.types())
		})
	}
}

func TestAccounts_LoginValidation(t *testing.T) {
	a, _, _, _ := newTestAccounts(t)

	_, err := a.Login(context.Background(), LoginInput{Email: "a@b.com"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestAccounts_VerifyToken(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("valid", func(t *testing.T) {
		a, users, tokens, _ := newTestAccounts(t)
		tokens.EXPECT().Parse("tok").Return(id.Hex(), nil)
		users.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, IsActive: true}, nil)

		u, err := a.VerifyToken(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
	})

	t.Run("bad signature", func(t *testing.T) {
		a, _, tokens, _ := newTestAccounts(t)
		tokens.EXPECT().Parse("tok").Return("", errors.New("signature is invalid"))

		_, err := a.VerifyToken(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("user gone", func(t *testing.T) {
		a, users, tokens, _ := newTestAccounts(t)
		tokens.EXPECT().Parse("tok").Return(id.Hex(), nil)
		users.EXPECT().UserByID(gomock.Any(), id).Return(nil, nil)

		_, err := a.VerifyToken(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("user deactivated", func(t *testing.T) {
		a, users, tokens, _ := newTestAccounts(t)
		tokens.EXPECT().Parse("tok").Return(id.Hex(), nil)
		users.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)

		_, err := a.VerifyToken(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func strptr(s string) *string { return &s }

func TestAccounts_UpdateProfile(t *testing.T) {
	id := primitive.NewObjectID()
	current := func() *models.User {
		return &models.User{
			ID:       id,
			Username: "alice123",
			Email:    "a@b.com",
			Password: hash(t, "Abcdef12"),
			IsActive: true,
			Profile:  map[string]string{"city": "Lisbon", "bio": "reader"},
		}
	}

	t.Run("profile set and unset", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		want := models.UserPatch{
			ProfileSet:   map[string]string{"city": "Porto"},
			ProfileUnset: []string{"bio"},
		}
		users.EXPECT().UpdateUser(gomock.Any(), id, want).Return(&models.User{ID: id}, nil)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{
			Profile: map[string]string{"city": "<b>Porto</b>", "bio": ""},
		})
		require.NoError(t, err)
	})

	t.Run("username change checks uniqueness excluding self", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UserByUsernameOrEmail(gomock.Any(), "alice_new", "", id).Return(nil, nil)
		users.EXPECT().UpdateUser(gomock.Any(), id, models.UserPatch{Username: strptr("alice_new")}).
			Return(&models.User{ID: id, Username: "alice_new"}, nil)

		u, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{Username: strptr(" alice_new ")})
		require.NoError(t, err)
		assert.Equal(t, "alice_new", u.Username)
	})

	t.Run("email taken", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UserByUsernameOrEmail(gomock.Any(), "", "c@d.com", id).
			Return(&models.User{ID: primitive.NewObjectID()}, nil)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{Email: strptr("C@D.com")})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("unchanged values are no updates", func(t *testing.T) {
		a, _, _, _ := newTestAccounts(t)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{
			Username: strptr("alice123"),
			Profile:  map[string]string{"city": "Lisbon", "missing": ""},
		})
		assert.ErrorIs(t, err, ErrNoUpdates)
	})

	t.Run("password change", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ primitive.ObjectID, p models.UserPatch) (*models.User, error) {
				require.NotNil(t, p.Password)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*p.Password), []byte("Newpass99")))
				return &models.User{ID: id}, nil
			})

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{
			CurrentPassword: "Abcdef12",
			NewPassword:     strptr("Newpass99"),
		})
		require.NoError(t, err)
	})

	t.Run("password change needs current password", func(t *testing.T) {
		a, _, _, _ := newTestAccounts(t)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{NewPassword: strptr("Newpass99")})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "currentPassword")
	})

	t.Run("wrong current password", func(t *testing.T) {
		a, _, _, _ := newTestAccounts(t)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{
			CurrentPassword: "Nope12345",
			NewPassword:     strptr("Newpass99"),
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("bad profile key", func(t *testing.T) {
		a, _, _, _ := newTestAccounts(t)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{
			Profile: map[string]string{"$where": "x"},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "profile")
	})

	t.Run("duplicate on write", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UserByUsernameOrEmail(gomock.Any(), gomock.Any(), gomock.Any(), id).Return(nil, nil)
		users.EXPECT().UpdateUser(gomock.Any(), id, gomock.Any()).Return(nil, store.ErrDuplicate)

		_, err := a.UpdateProfile(context.Background(), current(), UpdateProfileInput{Username: strptr("bob_1")})
		assert.ErrorIs(t, err, ErrUserExists)
	})
}

func TestAccounts_PublicProfile(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("found", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{
			ID: id, Username: "alice123", Email: "a@b.com", IsActive: true, JoinDate: fixedNow,
		}, nil)

		p, err := a.PublicProfile(context.Background(), id.Hex())
		require.NoError(t, err)
		assert.Equal(t, models.PublicProfile{ID: id.Hex(), Username: "alice123", JoinDate: fixedNow}, *p)
	})

	t.Run("malformed id", func(t *testing.T) {
		a, _, _, _ := newTestAccounts(t)

		_, err := a.PublicProfile(context.Background(), "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id}, nil)

		_, err := a.PublicProfile(context.Background(), id.Hex())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAccounts_DeleteSelf(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("deleted", func(t *testing.T) {
		a, users, _, pub := newTestAccounts(t)
		pub.err = errors.New("broker down")
		users.EXPECT().DeleteUser(gomock.Any(), id).Return(true, nil)

		require.NoError(t, a.DeleteSelf(context.Background(), &models.User{ID: id}))
		assert.Equal(t, []string{events.UserDeleted}, pub.types())
	})

	t.Run("already gone", func(t *testing.T) {
		a, users, _, _ := newTestAccounts(t)
		users.EXPECT().DeleteUser(gomock.Any(), id).Return(false, nil)

		assert.ErrorIs(t, a.DeleteSelf(context.Background(), &models.User{ID: id}), ErrNotFound)
	})
}
