package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "kasuwa",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	userID := uuid.New()

	payload := AccessTokenPayload{
		UserID: userID,
		Role:   enums.ActorRoleSeller,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.ActorRoleSeller {
		t.Fatalf("unexpected role %s", claims.Role)
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "kasuwa",
		ExpirationMinutes: 10,
	}
	now := time.Now()
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleBuyer,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token+"x")
	if err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "kasuwa",
		ExpirationMinutes: 15,
	}
	now := time.Now().Add(-time.Hour)
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleAdmin,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "kasuwa",
		ExpirationMinutes: 5,
	}
	now := time.Now()
	payload := AccessTokenPayload{
		UserID: uuid.New(),
		Role:   "",
	}

	if _, err := MintAccessToken(cfg, now, payload); err == nil {
		t.Fatal("expected invalid role error")
	}
}
