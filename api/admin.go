package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatyar/database"
	"chatyar/services"
)

// adminGetSettings تنظیمات سراسری فعلی
func (s *Server) adminGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": s.settings.Current()})
}

// adminUpdateSettings به‌روزرسانی تنظیمات سراسری
func (s *Server) adminUpdateSettings(c *gin.Context) {
	var settings database.GlobalSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	if err := s.settings.Update(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ذخیره تنظیمات"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "تنظیمات ذخیره شد"})
}

// adminSetLimitMessage بازنویسی متن یکی از پیام‌های محدودیت
func (s *Server) adminSetLimitMessage(c *gin.Context) {
	type request struct {
		Kind    string `json:"kind" binding:"required"`
		Message string `json:"message" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	if err := s.limits.SetOverride(services.LimitKind(req.Kind), req.Message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ذخیره پیام"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "پیام محدودیت ذخیره شد"})
}

// adminExpireSubscriptions اجرای دستی انقضای اشتراک‌های سررسیده
func (s *Server) adminExpireSubscriptions(c *gin.Context) {
	if err := s.subs.ExpireDue(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در انقضای اشتراک‌ها"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "اشتراک‌های سررسیده منقضی شدند"})
}
