package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userAuthMiddleware احراز هویت کاربر از روی token
func (s *Server) userAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ابتدا وارد سیستم شوید"})
			c.Abort()
			return
		}

		userID, err := s.auth.VerifyJWT(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "نشست شما معتبر نیست"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// adminAuthMiddleware احراز هویت پنل مدیریت
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ابتدا وارد سیستم شوید"})
			c.Abort()
			return
		}

		if err := s.auth.VerifyAdminJWT(tokenString); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "دسترسی ادمین لازم است"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return c.Query("token")
}
