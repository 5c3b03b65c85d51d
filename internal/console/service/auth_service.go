// Package service holds the console's business logic that does not belong
// in a handler or in the core engine packages.
package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra/auth"
	"github.com/xela07ax/fleetwatch/internal/store"
)

// AuthService issues RS256 tokens for console operators and, through the
// embedded validator, verifies them on the protected perimeter.
type AuthService struct {
	*auth.BaseValidator

	operators  store.OperatorStore
	privateKey *rsa.PrivateKey
	tokenTTL   time.Duration
}

func NewAuthService(operators store.OperatorStore, privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		BaseValidator: auth.NewBaseValidator(publicKey),
		operators:     operators,
		privateKey:    privateKey,
		tokenTTL:      tokenTTL,
	}
}

// GenerateToken authenticates the operator and signs a token carrying their
// scopes. Lookup and password failures collapse into one error so the
// response never reveals which half was wrong.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (*domain.TokenResponse, error) {
	op, err := s.operators.GetByUsername(ctx, username)
	if err != nil || op == nil {
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &domain.CustomClaims{
		UserID: op.ID,
		Scopes: op.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fleetwatch-console",
			Subject:   op.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.TokenResponse{
		AccessToken: signedToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
