// internal/services/auth_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
	"github.com/swapmart/backend/internal/utils"
)

const bearerTokenType = "Bearer"

// AuthService signs marketplace members up and in. Staff accounts are
// provisioned out of band, never through Register.
type AuthService struct {
	db  *gorm.DB
	jwt config.JWTConfig
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username    string                 `json:"username" validate:"required,username"`
	Email       string                 `json:"email" validate:"required,email"`
	Password    string                 `json:"password" validate:"required,strong_password"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

// AuthResponse is an issued session. ExpiresIn is the access token lifetime
// in seconds.
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, jwt: cfg.JWT}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid registration", err)
	}
	email := normalizeEmail(req.Email)
	taken := conflict(CodeUserExists, "email or username is already registered")

	users := repository.New(s.db.WithContext(ctx)).Users
	exists, err := users.ExistsByEmailOrUsername(email, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing users: %w", err)
	}
	if exists {
		return nil, taken
	}

	member := &models.User{
		Username:    req.Username,
		Email:       email,
		UserType:    models.UserTypeMember,
		Status:      models.UserStatusActive,
		ProfileData: models.JSONB(req.ProfileData),
	}
	if err := member.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	// The unique indexes settle a race between two sign-ups for the same name.
	if err := users.Create(member); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, taken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logrus.WithField("user_id", member.ID).Info("Member registered")
	return s.openSession(member)
}

// Login checks credentials. Unknown emails and wrong passwords produce the
// same error.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid login", err)
	}
	badCredentials := unauthorized(CodeInvalidCredentials, "invalid email or password")

	users := repository.New(s.db.WithContext(ctx)).Users
	user, err := users.FindByEmail(normalizeEmail(req.Email))
	switch {
	case repository.IsNotFound(err):
		return nil, badCredentials
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	case user.CheckPassword(req.Password) != nil:
		return nil, badCredentials
	case user.Status != models.UserStatusActive:
		return nil, unauthorized(CodeAccountInactive, "account is %s", user.Status)
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := users.Save(user); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	return s.openSession(user)
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := repository.New(s.db.WithContext(ctx)).Users.FindByID(userID)
	if repository.IsNotFound(err) {
		return nil, notFound(CodeUserNotFound, "user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) openSession(user *models.User) (*AuthResponse, error) {
	access, err := utils.GenerateJWT(user.ID, user.Username, string(user.UserType), s.jwt.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.GenerateRefreshToken(user.ID, s.jwt.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerTokenType,
		ExpiresIn:    int((time.Duration(s.jwt.AccessTokenTTL) * time.Hour).Seconds()),
	}, nil
}
