package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/pkg/clock"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// TokenConfig configures access token signing.
type TokenConfig struct {
	Secret   string
	Expiry   time.Duration
	Issuer   string
	Audience []string
}

// JWTIssuer signs and verifies HS256 access tokens.
type JWTIssuer struct {
	cfg   TokenConfig
	clock clock.Clock
}

// NewJWTIssuer constructs a JWTIssuer.
func NewJWTIssuer(cfg TokenConfig, clk clock.Clock) *JWTIssuer {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 2 * time.Hour
	}
	if clk == nil {
		clk, _ = clock.New("")
	}
	return &JWTIssuer{cfg: cfg, clock: clk}
}

// Issue signs a token for student and returns it with its expiry.
func (i *JWTIssuer) Issue(student *models.Student) (string, time.Time, error) {
	issuedAt := i.clock.Now()
	expiresAt := issuedAt.Add(i.cfg.Expiry)
	claims := &models.JWTClaims{
		StudentID: student.ID,
		Email:     student.Email,
		Name:      student.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   strconv.FormatInt(student.ID, 10),
			Audience:  i.cfg.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims.
func (i *JWTIssuer) Parse(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if len(i.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(i.cfg.Audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(i.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
