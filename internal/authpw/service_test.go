package authpw

import (
	"context"
	"errors"
	"testing"
	"time"

	"corkboard/api/internal/store"
)

type mockUserStore struct {
	users         map[string]store.User
	emailIndex    map[string]string
	verifications map[string]store.User
	resets        map[string]struct {
		userID    string
		expiresAt time.Time
		used      bool
	}
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:         make(map[string]store.User),
		emailIndex:    make(map[string]string),
		verifications: make(map[string]store.User),
		resets: make(map[string]struct {
			userID    string
			expiresAt time.Time
			used      bool
		}),
	}
}

func (m *mockUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) CreateUser(_ context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserStore) UpdateUserVerificationToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	if user, ok := m.users[userID]; ok {
		user.VerificationToken = token
		user.VerificationExpiresAt = &expiresAt
		m.users[userID] = user
		m.verifications[token] = user
	}
	return nil
}

func (m *mockUserStore) VerifyUserEmail(_ context.Context, token string) error {
	if user, ok := m.verifications[token]; ok {
		user.IsEmailVerified = true
		m.users[user.ID] = user
		m.emailIndex[user.Email] = user.ID
		return nil
	}
	return errors.New("invalid token")
}

func (m *mockUserStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	if user, ok := m.users[userID]; ok {
		user.PasswordHash = passwordHash
		m.users[userID] = user
		return nil
	}
	return store.ErrNotFound
}

func (m *mockUserStore) CreatePasswordReset(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.resets[token] = struct {
		userID    string
		expiresAt time.Time
		used      bool
	}{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *mockUserStore) GetPasswordReset(_ context.Context, token string) (string, error) {
	if reset, ok := m.resets[token]; ok && !reset.used && time.Now().Before(reset.expiresAt) {
		return reset.userID, nil
	}
	return "", errors.New("invalid or expired token")
}

func (m *mockUserStore) MarkPasswordResetUsed(_ context.Context, token string) error {
	if reset, ok := m.resets[token]; ok {
		reset.used = true
		m.resets[token] = reset
	}
	return nil
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("successful sign up", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		resp, err := svc.SignUp(ctx, SignUpRequest{
			Email:       "Test@Example.com",
			Password:    "password123",
			DisplayName: "Test User",
		})
		if err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		if resp.UserID == "" {
			t.Error("expected user ID")
		}
		if resp.VerificationToken == "" {
			t.Error("expected verification token")
		}
		if !resp.RequiresEmailVerify {
			t.Error("expected email verification to be required")
		}
	})

	t.Run("normalizes email", func(t *testing.T) {
		ms := newMockUserStore()
		svc := NewService(ms)
		if _, err := svc.SignUp(ctx, SignUpRequest{Email: "  Pat@Example.COM ", Password: "password123", DisplayName: "Pat"}); err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		if _, ok := ms.emailIndex["pat@example.com"]; !ok {
			t.Error("expected email stored lower-cased")
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		req := SignUpRequest{Email: "dup@example.com", Password: "password123", DisplayName: "Dup"}
		if _, err := svc.SignUp(ctx, req); err != nil {
			t.Fatalf("first SignUp failed: %v", err)
		}
		if _, err := svc.SignUp(ctx, req); err == nil {
			t.Error("expected duplicate email to be rejected")
		}
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@b.com", Password: "short", DisplayName: "A"}); err == nil {
			t.Error("expected short password to be rejected")
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@b.com", Password: "password123"}); err == nil {
			t.Error("expected missing display name to be rejected")
		}
	})
}

func signUpAndVerify(t *testing.T, svc *Service, email, password string) {
	t.Helper()
	ctx := context.Background()
	resp, err := svc.SignUp(ctx, SignUpRequest{Email: email, Password: password, DisplayName: "User"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if err := svc.VerifyEmail(ctx, resp.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("successful sign in", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		signUpAndVerify(t, svc, "user@example.com", "password123")

		resp, err := svc.SignIn(ctx, SignInRequest{Email: "user@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if resp.RequiresVerify {
			t.Error("verified user should not require verification")
		}
		if resp.User.Email != "user@example.com" {
			t.Errorf("unexpected user: %+v", resp.User)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		signUpAndVerify(t, svc, "user@example.com", "password123")
		if _, err := svc.SignIn(ctx, SignInRequest{Email: "user@example.com", Password: "wrong-password"}); err == nil {
			t.Error("expected wrong password to fail")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		if _, err := svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "password123"}); err == nil {
			t.Error("expected unknown email to fail")
		}
	})

	t.Run("unverified account", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		if _, err := svc.SignUp(ctx, SignUpRequest{Email: "new@example.com", Password: "password123", DisplayName: "New"}); err != nil {
			t.Fatalf("SignUp failed: %v", err)
		}
		resp, err := svc.SignIn(ctx, SignInRequest{Email: "new@example.com", Password: "password123"})
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		if !resp.RequiresVerify {
			t.Error("expected unverified account to require verification")
		}
	})
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("full reset flow", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		signUpAndVerify(t, svc, "user@example.com", "password123")

		token, err := svc.RequestPasswordReset(ctx, "user@example.com")
		if err != nil {
			t.Fatalf("RequestPasswordReset failed: %v", err)
		}
		if token == "" {
			t.Fatal("expected reset token")
		}

		if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "newpassword456"}); err != nil {
			t.Fatalf("ResetPassword failed: %v", err)
		}

		if _, err := svc.SignIn(ctx, SignInRequest{Email: "user@example.com", Password: "password123"}); err == nil {
			t.Error("old password should no longer work")
		}
		if _, err := svc.SignIn(ctx, SignInRequest{Email: "user@example.com", Password: "newpassword456"}); err != nil {
			t.Errorf("new password should work: %v", err)
		}
	})

	t.Run("unknown email does not reveal accounts", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		token, err := svc.RequestPasswordReset(ctx, "ghost@example.com")
		if err != nil {
			t.Fatalf("RequestPasswordReset failed: %v", err)
		}
		if token != "" {
			t.Error("expected empty token for unknown email")
		}
	})

	t.Run("used token rejected", func(t *testing.T) {
		svc := NewService(newMockUserStore())
		signUpAndVerify(t, svc, "user@example.com", "password123")

		token, _ := svc.RequestPasswordReset(ctx, "user@example.com")
		if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "newpassword456"}); err != nil {
			t.Fatalf("ResetPassword failed: %v", err)
		}
		if err := svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "anotherpass789"}); err == nil {
			t.Error("expected used token to be rejected")
		}
	})
}
