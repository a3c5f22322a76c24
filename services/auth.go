package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatyar/config"
	"chatyar/utils"
)

type AuthService struct{}

// GenerateJWT تولید JWT token
func (s *AuthService) GenerateJWT(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   userID,
		"user_type": "user",
		"exp":       time.Now().Add(time.Hour * 24).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// GenerateAdminJWT تولید token برای پنل مدیریت
func (s *AuthService) GenerateAdminJWT(username string) (string, error) {
	claims := jwt.MapClaims{
		"username":  username,
		"user_type": "admin",
		"exp":       time.Now().Add(time.Hour * 24).Unix(),
		"iat":       time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// VerifyAdminJWT تایید token ادمین
func (s *AuthService) VerifyAdminJWT(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("token نامعتبر است")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("claims نامعتبر است")
	}

	if userType, _ := claims["user_type"].(string); userType != "admin" {
		return fmt.Errorf("دسترسی ادمین لازم است")
	}
	return nil
}

// VerifyJWT تایید JWT token
func (s *AuthService) VerifyJWT(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return 0, fmt.Errorf("خطا در تایید token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("token نامعتبر است")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("claims نامعتبر است")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("user_id یافت نشد")
	}

	return uint(userID), nil
}

// VerifyAdminPassword بررسی رمز ادمین
func (s *AuthService) VerifyAdminPassword(hashedPassword, password string) bool {
	return utils.VerifyPassword(hashedPassword, password)
}
