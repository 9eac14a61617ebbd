package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leelaaverse/internal/auth"
	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/dto"
)

func newUserFixture(t *testing.T) *UserService {
	t.Helper()
	tokens, err := auth.NewManager("test-secret", "", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	return NewUserService(newTestRepository(t), tokens)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, dto.AuthRegisterRequest{Email: "Alice@Example.com", Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "alice@example.com" || reg.User.DisplayName != "alice" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	tests := []struct {
		name string
		req  dto.AuthRegisterRequest
		want error
	}{
		{name: "邮箱重复", req: dto.AuthRegisterRequest{Email: "alice@example.com", Username: "alice2", Password: "password123"}, want: entity.ErrEmailTaken},
		{name: "用户名重复", req: dto.AuthRegisterRequest{Email: "other@example.com", Username: "alice", Password: "password123"}, want: entity.ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := svc.Login(ctx, dto.AuthLoginRequest{Email: "alice@example.com", Password: "wrong-password"}); !errors.Is(err, entity.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, dto.AuthLoginRequest{Email: "nobody@example.com", Password: "password123"}); !errors.Is(err, entity.ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
	login, err := svc.Login(ctx, dto.AuthLoginRequest{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("login user = %d", login.User.ID)
	}
}

func TestUpdateProfileAndPublicView(t *testing.T) {
	svc := newUserFixture(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, dto.AuthRegisterRequest{Email: "bob@example.com", Username: "bob", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	bio := "  painter of pixels "
	updated, err := svc.UpdateProfile(ctx, reg.User.ID, dto.ProfileUpdateRequest{Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.User.Bio != "painter of pixels" || updated.User.DisplayName != "bob" {
		t.Fatalf("unexpected profile: %+v", updated.User)
	}

	public, err := svc.GetUser(ctx, Viewer{}, reg.User.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if public.User.Email != "" {
		t.Fatal("email must be hidden from other viewers")
	}
	own, err := svc.GetUser(ctx, Viewer{UserID: reg.User.ID}, reg.User.ID)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	if own.User.Email != "bob@example.com" {
		t.Fatalf("email = %q", own.User.Email)
	}
}
