package service

import (
	"context"
	"fmt"

	"github.com/quantdesk/usdthub/db/models"
	"github.com/quantdesk/usdthub/lib/security"
	"github.com/quantdesk/usdthub/lib/tokens"
)

func (svc *PaymentService) CreateUser(ctx context.Context, login string, password string) (user *models.User, err error) {
	user = &models.User{}

	// generate user login/password if not provided
	user.Login = login
	if login == "" {
		randLoginBytes, err := randBytesFromStr(20, alphaNumBytes)
		if err != nil {
			return nil, err
		}
		user.Login = string(randLoginBytes)
	}
	if password == "" {
		randPasswordBytes, err := randBytesFromStr(20, alphaNumBytes)
		if err != nil {
			return nil, err
		}
		password = string(randPasswordBytes)
	}

	// we only store the hashed password but return the initial plain text password in the HTTP response
	user.Password = security.HashPassword(password)
	if _, err := svc.DB.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, err
	}
	user.Password = password
	return user, nil
}

func (svc *PaymentService) FindUser(ctx context.Context, userId int64) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("id = ?", userId).Limit(1).Scan(ctx)
	if err != nil {
		return &user, err
	}
	return &user, nil
}

func (svc *PaymentService) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Limit(1).Scan(ctx)
	if err != nil {
		return &user, err
	}
	return &user, nil
}

func (svc *PaymentService) GenerateToken(ctx context.Context, login, password string) (accessToken string, err error) {
	if login == "" || password == "" {
		return "", fmt.Errorf("login and password are required")
	}
	user, err := svc.FindUserByLogin(ctx, login)
	if err != nil {
		return "", fmt.Errorf("bad auth")
	}
	if user.Deactivated {
		return "", ErrAccountDeactivated
	}
	if !security.VerifyPassword(user.Password, password) {
		return "", fmt.Errorf("bad auth")
	}
	return tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, user)
}
