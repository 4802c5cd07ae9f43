package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"relay/internal/models"
	"relay/internal/ports"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour

type AuthService struct {
	userRepo  ports.IUserRepository
	hasher    IHasher
	tokenRepo ports.TokenRevocationStore
	jwtKey    []byte
	logger    *slog.Logger
}

func NewAuthService(userRepo ports.IUserRepository, hasher IHasher, tokenRepo ports.TokenRevocationStore, jwtKey []byte, logger *slog.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, hasher: hasher, tokenRepo: tokenRepo, jwtKey: jwtKey, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (int64, error) {
	if name == "" || email == "" || password == "" {
		s.logger.Warn("missing required fields in registration")
		return 0, ErrInvalidInput
	}

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		s.logger.Warn("email already registered", "email", email)
		return 0, ErrEmailTaken
	}

	hashed, err := s.hasher.GenerateFromPassword([]byte(password), s.hasher.DefaultCost())
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		return 0, err
	}

	userID, err := s.userRepo.CreateUser(ctx, name, email, string(hashed))
	if err != nil {
		s.logger.Error("user creation failed", "error", err)
		return 0, err
	}

	s.logger.Info("user registered", "userID", userID, "email", email)
	return userID, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrUnauthorized
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.Error("user lookup failed", "email", email, "error", err)
		return "", err
	}
	if user == nil {
		s.logger.Warn("login for unknown email", "email", email)
		return "", ErrUnauthorized
	}

	if err := s.hasher.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("invalid password", "email", email)
		return "", ErrUnauthorized
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.Email,
		"user_id": user.ID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		s.logger.Error("token signing failed", "error", err)
		return "", err
	}

	s.logger.Info("login successful", "userID", user.ID)
	return signed, nil
}

// ValidateToken verifies signature, expiry and the revocation list and
// returns the authenticated user's id.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, ErrUnauthorized
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, hashToken(tokenString))
	if err != nil {
		s.logger.Error("token revocation check failed", "error", err)
		return 0, err
	}
	if revoked {
		return 0, ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		s.logger.Warn("token validation failed", "error", err)
		return 0, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrUnauthorized
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return 0, ErrUnauthorized
	}

	return int64(rawID), nil
}

// RevokeToken blacklists the token for the remainder of its lifetime.
func (s *AuthService) RevokeToken(ctx context.Context, tokenString string) error {
	return s.tokenRepo.Revoke(ctx, hashToken(tokenString), tokenTTL)
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
