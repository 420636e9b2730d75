package services

import (
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/utils"
)

func (s *ServiceTestSuite) TestRegisterAndLogin() {
	utils.SetJWTSecret(s.cfg.JWT.SecretKey)
	auth := NewAuthService(s.db, s.cfg)

	registered, err := auth.Register(s.ctx, &RegisterRequest{
		Username: "carol_01",
		Email:    "carol@example.com",
		Password: "Sup3r$ecret",
	})
	s.Require().NoError(err)
	s.Equal(models.UserTypeMember, registered.User.UserType)
	s.Equal("Bearer", registered.TokenType)
	s.Equal(3600, registered.ExpiresIn)

	claims, err := utils.ValidateJWT(registered.AccessToken)
	s.Require().NoError(err)
	s.Equal(registered.User.ID.String(), claims.UserID)

	_, err = auth.Register(s.ctx, &RegisterRequest{
		Username: "carol_02",
		Email:    "CAROL@example.com",
		Password: "Sup3r$ecret",
	})
	s.requireKind(err, ErrConflict, CodeUserExists)

	loggedIn, err := auth.Login(s.ctx, &LoginRequest{Email: "Carol@Example.com", Password: "Sup3r$ecret"})
	s.Require().NoError(err)
	s.NotNil(loggedIn.User.LastLoginAt)
	s.NotEqual(registered.RefreshToken, loggedIn.RefreshToken)

	_, err = auth.Login(s.ctx, &LoginRequest{Email: "carol@example.com", Password: "wrong"})
	s.requireKind(err, ErrUnauthorized, CodeInvalidCredentials)

	_, err = auth.Login(s.ctx, &LoginRequest{Email: "nobody@example.com", Password: "Sup3r$ecret"})
	s.requireKind(err, ErrUnauthorized, CodeInvalidCredentials)
}

func (s *ServiceTestSuite) TestRegisterRejectsWeakInput() {
	auth := NewAuthService(s.db, s.cfg)

	_, err := auth.Register(s.ctx, &RegisterRequest{Username: "x!", Email: "not-an-email", Password: "short"})
	s.requireKind(err, ErrValidation, CodeValidationFailed)
}

func (s *ServiceTestSuite) TestLoginRejectsSuspendedAccount() {
	user := s.createUser("dave")
	s.Require().NoError(s.db.Model(user).Update("status", models.UserStatusSuspended).Error)

	_, err := NewAuthService(s.db, s.cfg).Login(s.ctx, &LoginRequest{Email: user.Email, Password: "Secret123!"})
	s.requireKind(err, ErrUnauthorized, CodeAccountInactive)
}
