package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vitoflow/metering-api/internal/config"
	"github.com/vitoflow/metering-api/internal/domain/user"
	"github.com/vitoflow/metering-api/internal/handler/dto"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/storage/memstorage"
	"go.uber.org/zap"
)

// Claims carried in management-API tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and validates the HS256 tokens guarding the
// management surface. Tenant traffic never passes through here.
type AuthService struct {
	userRepo user.Repository
	cfg      *config.AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(userRepo user.Repository, cfg *config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.Named("AuthService"),
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Warn("Login attempt for unknown user", zap.String("username", username))
		return nil, ierr.ErrInvalidCredentials
	}

	if !memstorage.CheckPassword(u.PasswordHash, password) {
		s.logger.Warn("Login attempt with wrong password", zap.String("username", username))
		return nil, ierr.ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.cfg.TokenLifetime)
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return nil, fmt.Errorf("%w: token signing failed", ierr.ErrInternalServer)
	}

	s.logger.Info("User logged in", zap.String("username", u.Username))
	return &dto.LoginResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ierr.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ierr.ErrInvalidToken
	}

	return claims, nil
}
