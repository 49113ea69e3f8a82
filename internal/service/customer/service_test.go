package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

// memoryRepo is a lightweight in-memory customer repository for tests.
type memoryRepo struct {
	byEmail map[string]domain.Customer
}

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]domain.Customer)}
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range r.tokens {
		if now.After(t.ExpiresAt) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if _, exists := r.byEmail[c.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	clone := c
	if clone.ID == "" {
		clone.ID = "cust-" + c.Email
	}
	r.byEmail[clone.Email] = clone
	return &clone, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	if c, ok := r.byEmail[email]; ok {
		clone := c
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	for _, c := range r.byEmail {
		if c.ID == id {
			clone := c
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) SetAdmin(_ context.Context, id string, admin bool) error {
	for email, c := range r.byEmail {
		if c.ID == id {
			c.IsAdmin = admin
			r.byEmail[email] = c
			return nil
		}
	}
	return domain.ErrNotFound
}

func TestSignupAndLogin_SucceedsWithTrimmedPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, newMemoryTokenRepo(), 0)

	ctx := context.Background()
	rawPassword := " Abcdefg1 " // includes whitespace

	customer, err := svc.Signup(ctx, SignupInput{
		Email:    "User@Example.com",
		Password: rawPassword,
		Name:     "T User",
	})
	if err != nil {
		t.Fatalf("signup returned error: %v", err)
	}
	if customer == nil || customer.Email != "user@example.com" || customer.IsAdmin {
		t.Fatalf("unexpected customer %+v", customer)
	}

	_, token, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("login failed with trimmed password: %v", err)
	}

	found, err := svc.LookupByToken(ctx, token)
	if err != nil || found.ID != customer.ID {
		t.Fatalf("LookupByToken: %+v err=%v", found, err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.LookupByToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("second Logout should be a no-op, got %v", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), 0)
	cases := map[string]SignupInput{
		"missing email": {Password: "Abcdefg1"},
		"bad email":     {Email: "not-an-email", Password: "Abcdefg1"},
		"weak password": {Email: "a@example.com", Password: "abc"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), in)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestValidatePassword_FailsOnWeakValues(t *testing.T) {
	cases := []struct {
		name string
		pass string
	}{
		{"too short", "Abc1"},
		{"no upper", "abcdefg1"},
		{"no lower", "ABCDEFG1"},
		{"no digit", "Abcdefgh"},
	}
	for _, tc := range cases {
		if err := validatePassword(tc.pass, 8); err == nil {
			t.Fatalf("expected error for case %s", tc.name)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, newMemoryTokenRepo(), 0)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{
		Email:    "user@example.com",
		Password: "Abcdefg1",
		Name:     "T",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, _, err := svc.Login(ctx, "user@example.com", "wrongpass"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "missing@example.com", "Abcdefg1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing user, got %v", err)
	}
}

func TestLookupByToken_ExpiredTokenIsRejectedAndDeleted(t *testing.T) {
	repo := newMemoryRepo()
	tokens := newMemoryTokenRepo()
	svc := New(repo, tokens, time.Hour)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "user@example.com", Password: "Abcdefg1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, token, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.LookupByToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, ok := tokens.tokens[token]; ok {
		t.Fatalf("expired token should be deleted")
	}
}

func TestPromoteAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, newMemoryTokenRepo(), 0)
	ctx := context.Background()

	created, err := svc.PromoteAdmin(ctx, SignupInput{Email: "admin@example.com", Password: "Admin1234"})
	if err != nil {
		t.Fatalf("PromoteAdmin: %v", err)
	}
	if !created.IsAdmin || !repo.byEmail["admin@example.com"].IsAdmin {
		t.Fatalf("expected admin flag to be stored")
	}

	again, err := svc.PromoteAdmin(ctx, SignupInput{Email: "admin@example.com", Password: "Admin1234"})
	if err != nil || again.ID != created.ID {
		t.Fatalf("PromoteAdmin should be idempotent: %+v err=%v", again, err)
	}
}
