package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"leelaaverse/internal/entity/db"
)

func TestNewManagerAndTokenLifecycle(t *testing.T) {
	mgr, err := NewManager("test-secret", "issuer", time.Minute*30)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	user := &db.User{ID: 42, Email: "user@example.com", Username: "nova", Role: db.UserRoleAdmin}
	token, expiresAt, err := mgr.GenerateToken(user)
	if err != nil {
		t.Fatalf("unexpected error generating token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected future expiry time")
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %d, got %d", user.ID, claims.UserID)
	}
	if !strings.EqualFold(claims.Email, user.Email) {
		t.Fatalf("expected email %s, got %s", user.Email, claims.Email)
	}
	if claims.Username != "nova" || !claims.IsAdmin() {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("   ", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestParseTokenRejects(t *testing.T) {
	mgr, _ := NewManager("secret-a", "leelaaverse-api", time.Hour)
	other, _ := NewManager("secret-b", "leelaaverse-api", time.Hour)
	foreignIssuer, _ := NewManager("secret-a", "someone-else", time.Hour)

	user := &db.User{ID: 7, Email: "a@example.com", Role: db.UserRoleUser}
	wrongKey, _, _ := other.GenerateToken(user)
	wrongIssuer, _, _ := foreignIssuer.GenerateToken(user)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong key", token: wrongKey},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.ParseToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGenerateTokenRequiresUser(t *testing.T) {
	mgr, _ := NewManager("secret", "", time.Hour)
	if _, _, err := mgr.GenerateToken(&db.User{}); err == nil {
		t.Fatal("expected error for user without id")
	}
}
