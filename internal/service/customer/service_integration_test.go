package customer

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"storefront/internal/domain"
	customerrepo "storefront/internal/repository/customer"
	tokenrepo "storefront/internal/repository/token"
	"storefront/internal/testdb"
)

func TestSignupAndLogin_Integration(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)

	repo := customerrepo.NewPostgres(pool, log.New(os.Stdout, "[test] ", log.LstdFlags))
	svc := New(repo, tokenrepo.NewPostgres(pool), 0)

	cust, err := svc.Signup(ctx, SignupInput{
		Email:    "integration@example.com",
		Password: "Abcdefg1",
		Name:     "Int User",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if cust == nil || cust.ID == "" {
		t.Fatalf("expected created customer, got %+v", cust)
	}

	if _, err := svc.Signup(ctx, SignupInput{Email: "INTEGRATION@example.com", Password: "Abcdefg1"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}

	logged, token, err := svc.Login(ctx, "integration@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != cust.ID || token == "" {
		t.Fatalf("unexpected login result %+v token=%q", logged, token)
	}

	found, err := svc.LookupByToken(ctx, token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.Email != "integration@example.com" || found.Name != "Int User" {
		t.Fatalf("unexpected customer %+v", found)
	}

	admin, err := svc.PromoteAdmin(ctx, SignupInput{Email: "integration@example.com"})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	reloaded, err := repo.GetByID(ctx, admin.ID)
	if err != nil || !reloaded.IsAdmin {
		t.Fatalf("expected stored admin flag, got %+v err=%v", reloaded, err)
	}
}
