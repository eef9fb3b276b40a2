// Package authsvc implements registration, login, and bearer-token
// verification for the HTTP surface. Grounded on
// original_source/src/api/auth.py (bcrypt password hashing, JWT issuance
// with an "address" claim, token_required decorator), ported to
// golang-jwt/jwt/v4 and golang.org/x/crypto/bcrypt — the libraries the
// rest of this module's domain stack is built on.
package authsvc

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgertypes"
	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

const initialReputation = 100

// Service issues and verifies bearer tokens against the user store.
type Service struct {
	store      store.Store
	secretKey  []byte
	expiresIn  time.Duration
}

// New builds a Service. expiresIn mirrors Config.JWT_ACCESS_TOKEN_EXPIRES.
func New(s store.Store, secretKey string, expiresIn time.Duration) *Service {
	return &Service{store: s, secretKey: []byte(secretKey), expiresIn: expiresIn}
}

// Register creates a new user with a bcrypt-hashed password and the
// default reputation score.
func (s *Service) Register(ctx context.Context, address, password string) error {
	if len(address) < ledgertypes.MinAddressLength || password == "" {
		return ledgerrors.Validation("address and password required")
	}

	existing, err := s.store.GetUser(ctx, address)
	if err != nil {
		return ledgerrors.Persistence("reading user: %v", err)
	}
	if existing != nil {
		return ledgerrors.Validation("address already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}

	return s.store.CreateUser(ctx, store.UserRecord{
		Address:         address,
		PasswordHash:    string(hash),
		ReputationScore: initialReputation,
	})
}

// LoginResult is the payload issued on a successful login.
type LoginResult struct {
	Token           string
	ReputationScore int
}

// Login verifies credentials and issues a bearer token carrying the
// address claim, mirroring auth.py's jwt.encode call.
func (s *Service) Login(ctx context.Context, address, password string) (*LoginResult, error) {
	if address == "" || password == "" {
		return nil, ledgerrors.Validation("address and password required")
	}

	user, err := s.store.GetUser(ctx, address)
	if err != nil {
		return nil, ledgerrors.Persistence("reading user: %v", err)
	}
	if user == nil {
		return nil, ledgerrors.Validation("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ledgerrors.Validation("invalid credentials")
	}

	if err := s.store.TouchUserActivity(ctx, address); err != nil {
		return nil, ledgerrors.Persistence("updating last activity: %v", err)
	}

	claims := jwt.MapClaims{
		"address": address,
		"exp":     time.Now().Add(s.expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return nil, errors.Wrap(err, "signing token")
	}

	return &LoginResult{Token: signed, ReputationScore: user.ReputationScore}, nil
}

// Verify parses and validates a bearer token, returning the address claim.
func (s *Service) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", ledgerrors.Validation("invalid or expired token: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ledgerrors.Validation("invalid token")
	}
	address, ok := claims["address"].(string)
	if !ok {
		return "", ledgerrors.Validation("token missing address claim")
	}
	return address, nil
}
