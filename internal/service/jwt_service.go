package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService emite y valida los tokens de lectura de la API de reportes.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  TokenStore
}

type Claims struct {
	Scope     string `json:"scope"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

const (
	tokenTypeReader = "reader"
	scopeRunsRead   = "runs:read"
)

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTRevoked = errors.New("jwt revoked")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "persona-probe",
	}
}

// NewJWTServiceWithStore exige que cada token siga presente en el store.
func NewJWTServiceWithStore(secret string, ttl time.Duration, store TokenStore) *JWTService {
	svc := NewJWTService(secret, ttl)
	svc.store = store
	return svc
}

// MintReaderToken firma un token de solo lectura para subject.
func (s *JWTService) MintReaderToken(subject string) (string, Claims, error) {
	subject = strings.TrimSpace(subject)
	if len(s.secret) == 0 || subject == "" {
		return "", Claims{}, ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		Scope:     scopeRunsRead,
		TokenType: tokenTypeReader,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", Claims{}, err
	}
	if s.store != nil {
		if err := s.store.Store(claims.ID, subject, s.ttl); err != nil {
			return "", Claims{}, err
		}
	}
	return signed, claims, nil
}

// Revoke invalida un token por su jti. Requiere store.
func (s *JWTService) Revoke(jti string) error {
	if s.store == nil || strings.TrimSpace(jti) == "" {
		return ErrJWTInvalid
	}
	return s.store.Revoke(jti)
}

func (s *JWTService) ParseReaderToken(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeReader || claims.Scope != scopeRunsRead {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if s.store != nil {
		ok, err := s.store.Exists(claims.ID)
		if err != nil {
			return Claims{}, ErrJWTInvalid
		}
		if !ok {
			return Claims{}, ErrJWTRevoked
		}
	}
	return claims, nil
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
