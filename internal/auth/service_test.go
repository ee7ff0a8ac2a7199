package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/tryonstudio/tryon-backend/pkg/auth"
	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/security"
)

func TestServiceLoginIssuesTierClaim(t *testing.T) {
	password := "pro-secret"
	hashed := mustHashPassword(t, password)
	user := &models.User{
		ID:               uuid.New(),
		Email:            "pro@example.com",
		PasswordHash:     hashed,
		FirstName:        "Pro",
		Credits:          200,
		SubscriptionTier: enums.SubscriptionTierPro,
		IsActive:         true,
	}
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "tryon",
		ExpirationMinutes: 30,
	}

	svc, _, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.Tier != enums.SubscriptionTierPro {
		t.Fatalf("expected pro tier claim, got %s", claims.Tier)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
	if resp.User == nil || resp.User.Credits != 200 {
		t.Fatalf("expected profile with credits in response, got %+v", resp.User)
	}
}

func TestServiceLoginRejectsWrongPassword(t *testing.T) {
	hashed := mustHashPassword(t, "right-password")
	user := &models.User{
		ID:               uuid.New(),
		Email:            "user@example.com",
		PasswordHash:     hashed,
		FirstName:        "User",
		SubscriptionTier: enums.SubscriptionTierFree,
		IsActive:         true,
	}
	cfg := config.JWTConfig{Secret: "secret", Issuer: "tryon", ExpirationMinutes: 30}

	svc, _, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "wrong-password",
	})
	if err == nil {
		t.Fatalf("expected unauthorized for wrong password")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	password := "inactive-secret"
	hashed := mustHashPassword(t, password)
	user := &models.User{
		ID:               uuid.New(),
		Email:            "inactive@example.com",
		PasswordHash:     hashed,
		FirstName:        "Inactive",
		SubscriptionTier: enums.SubscriptionTierFree,
		IsActive:         false,
	}
	cfg := config.JWTConfig{Secret: "secret", Issuer: "tryon", ExpirationMinutes: 30}

	svc, _, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err == nil {
		t.Fatalf("expected unauthorized for inactive user")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func buildTestService(user *models.User, jwtCfg config.JWTConfig) (Service, *stubSessionManager, error) {
	userRepo := stubUserRepo{user: user}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionMgr,
		JWTConfig:      jwtCfg,
	})
	return svc, sessionMgr, err
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}
