package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTService_MintParseReader(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, minted, err := svc.MintReaderToken(" analyst ")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := svc.ParseReaderToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "analyst" || claims.ID != minted.ID || claims.Scope != scopeRunsRead {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	if _, _, err := svc.MintReaderToken("  "); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected invalid for empty subject, got %v", err)
	}
	if _, err := svc.ParseReaderToken(""); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected invalid for empty token, got %v", err)
	}

	other := NewJWTService("other-secret", time.Hour)
	token, _, _ := other.MintReaderToken("analyst")
	if _, err := svc.ParseReaderToken(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected invalid for foreign signature, got %v", err)
	}

	now := time.Now().UTC()
	wrongType := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope:     scopeRunsRead,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "j", Issuer: "persona-probe", Subject: "x",
			IssuedAt: jwt.NewNumericDate(now), ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, _ := wrongType.SignedString([]byte("secret"))
	if _, err := svc.ParseReaderToken(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected invalid for wrong token type, got %v", err)
	}
}

func TestJWTService_Expired(t *testing.T) {
	now := time.Now().UTC()
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope:     scopeRunsRead,
		TokenType: tokenTypeReader,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "j", Issuer: "persona-probe", Subject: "x",
			IssuedAt: jwt.NewNumericDate(now.Add(-2 * time.Hour)), ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	})
	signed, _ := expired.SignedString([]byte("secret"))
	if _, err := NewJWTService("secret", time.Hour).ParseReaderToken(signed); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestJWTService_RevocationWithStore(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", time.Hour, NewMemoryTokenStore())
	token, claims, err := svc.MintReaderToken("analyst")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.ParseReaderToken(token); err != nil {
		t.Fatalf("parse before revoke: %v", err)
	}
	if err := svc.Revoke(claims.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.ParseReaderToken(token); !errors.Is(err, ErrJWTRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}

	if err := NewJWTService("secret", time.Hour).Revoke(claims.ID); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("revoke without store must fail, got %v", err)
	}
}
