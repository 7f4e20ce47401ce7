package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/pkg/clock"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

const invalidCredentialsMessage = "invalid email or password"

type tokenIssuer interface {
	Issue(student *models.Student) (string, time.Time, error)
	Parse(token string) (*models.JWTClaims, error)
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AuthService registers and authenticates students.
type AuthService struct {
	uow       unitOfWorkFactory
	tokens    tokenIssuer
	hasher    passwordHasher
	clock     clock.Clock
	validator *validator.Validate
	logger    *zap.Logger

	decoyHash string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(uow unitOfWorkFactory, tokens tokenIssuer, hasher passwordHasher, clk clock.Clock, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	if clk == nil {
		clk, _ = clock.New("")
	}
	s := &AuthService{uow: uow, tokens: tokens, hasher: hasher, clock: clk, validator: validate, logger: logger}
	if decoy, err := hasher.Hash("decoy-password-1!"); err == nil {
		s.decoyHash = decoy
	}
	return s
}

// Register creates a student account.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	taken, err := uow.Students().Query().Where("email = ?", req.Email).Exists(ctx)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrEmailTaken, "")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		RegisteredAt: s.clock.Now(),
	}
	if err := uow.Students().Add(ctx, student); err != nil {
		return nil, err
	}
	if _, err := uow.Complete(ctx); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, appErrors.ErrEmailTaken.Message)
		}
		return nil, err
	}

	s.logger.Info("student registered", zap.Int64("student_id", student.ID))
	return &models.RegisterResponse{ID: student.ID, Name: student.Name, Email: student.Email}, nil
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	student, err := uow.Students().FindOne(ctx, repository.Where("email = ?", req.Email), false)
	if err != nil {
		return nil, err
	}
	if student == nil {
		if s.decoyHash != "" {
			_ = s.hasher.Compare(s.decoyHash, req.Password)
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
	}
	if err := s.hasher.Compare(student.PasswordHash, req.Password); err != nil {
		s.logger.Debug("login rejected", zap.Int64("student_id", student.ID), zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	token, expiresAt, err := s.tokens.Issue(student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{Token: token, Name: student.Name, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	return s.tokens.Parse(token)
}
