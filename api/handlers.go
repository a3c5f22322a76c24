package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatyar/config"
	"chatyar/database"
	"chatyar/services"
	"chatyar/utils"
)

// requestOTP درخواست کد یکبارمصرف ورود
func (s *Server) requestOTP(c *gin.Context) {
	type request struct {
		Phone string `json:"phone" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	if err := s.otp.Request(c.Request.Context(), req.Phone); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "کد تایید ارسال شد"})
}

// verifyOTP تایید کد و صدور token؛ کاربر جدید اینجا ساخته می‌شود
func (s *Server) verifyOTP(c *gin.Context) {
	type request struct {
		Phone string `json:"phone" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	ok, err := s.otp.Verify(req.Phone, req.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در بررسی کد تایید"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "کد تایید اشتباه یا منقضی است"})
		return
	}

	user, err := s.users.GetOrCreateByPhone(req.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ایجاد حساب کاربری"})
		return
	}

	token, err := s.auth.GenerateJWT(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در صدور token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":           user.ID,
			"phone_number": user.PhoneNumber,
			"full_name":    user.FullName,
		},
	})
}

// adminLogin ورود پنل مدیریت با نام کاربری و رمز عبور
func (s *Server) adminLogin(c *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	if req.Username != config.AppConfig.AdminUsername ||
		!s.auth.VerifyAdminPassword(config.AppConfig.AdminPassword, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "نام کاربری یا رمز عبور اشتباه است"})
		return
	}

	token, err := s.auth.GenerateAdminJWT(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در صدور token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// getProfile پروفایل کاربر همراه پلن فعال
func (s *Server) getProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	user, err := s.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "کاربر یافت نشد"})
		return
	}

	plan, sub, err := s.subs.CurrentPlan(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن اشتراک"})
		return
	}

	resp := gin.H{
		"id":           user.ID,
		"phone_number": user.PhoneNumber,
		"full_name":    user.FullName,
		"created_at":   user.CreatedAt,
	}
	if plan != nil {
		resp["plan"] = gin.H{
			"id":       plan.ID,
			"name":     plan.Name,
			"end_date": sub.EndDate,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// getUsage وضعیت مصرف در تمام بازه‌ها به همراه مصرف عمری
func (s *Server) getUsage(c *gin.Context) {
	userID := c.GetUint("user_id")

	plan, _, err := s.subs.CurrentPlan(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن اشتراک"})
		return
	}
	if plan == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "اشتراک فعالی ندارید"})
		return
	}

	now := time.Now().In(config.Location())
	windows := gin.H{}
	for _, h := range services.AllHorizons() {
		start := services.HorizonStart(h, now)
		messages, tokens, err := s.usage.WindowTotals(userID, plan.ID, start, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن مصرف"})
			return
		}
		windows[string(h)] = gin.H{"messages": messages, "tokens": tokens}
	}

	paid, free, err := s.usage.LifetimeTotals(userID, plan.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن مصرف"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":                 plan.Name,
		"windows":              windows,
		"lifetime_tokens":      paid,
		"lifetime_free_tokens": free,
		"max_tokens":           plan.MaxTokens,
		"max_tokens_free":      plan.MaxTokensFree,
	})
}

// listModels مدل‌های فعال
func (s *Server) listModels(c *gin.Context) {
	var models []database.AIModel
	if err := s.db.Where("is_active = ?", true).Find(&models).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن مدل‌ها"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// listPlans پلن‌های قابل خرید
func (s *Server) listPlans(c *gin.Context) {
	var plans []database.Plan
	if err := s.db.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن پلن‌ها"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// getUpgradeQuote پیش‌فاکتور ارتقا: اعتبار باقیمانده و مبلغ قابل پرداخت
func (s *Server) getUpgradeQuote(c *gin.Context) {
	userID := c.GetUint("user_id")

	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "شناسه پلن نامعتبر است"})
		return
	}

	var plan database.Plan
	if err := s.db.First(&plan, uint(planID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "پلن یافت نشد"})
		return
	}

	residual, amount, err := s.subs.UpgradeQuote(userID, &plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در محاسبه پیش‌فاکتور"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan_id":         plan.ID,
		"plan_price":      plan.Price,
		"residual_credit": residual,
		"payable_amount":  amount,
	})
}

// requestPayment ایجاد تراکنش و بازگرداندن لینک درگاه
func (s *Server) requestPayment(c *gin.Context) {
	userID := c.GetUint("user_id")

	type request struct {
		PlanID uint `json:"plan_id" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	var plan database.Plan
	if err := s.db.Where("is_active = ?", true).First(&plan, req.PlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "پلن یافت نشد"})
		return
	}

	_, amount, err := s.subs.UpgradeQuote(userID, &plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در محاسبه مبلغ"})
		return
	}

	payURL, err := s.payment.RequestPayment(c.Request.Context(), userID, plan.ID, amount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_url": payURL})
}

// paymentCallback بازگشت از درگاه؛ تایید نهایی همین‌جا انجام می‌شود
func (s *Server) paymentCallback(c *gin.Context) {
	trackID := c.Query("trackId")
	if trackID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "شناسه پیگیری یافت نشد"})
		return
	}

	if c.Query("success") != "1" {
		c.JSON(http.StatusOK, gin.H{"status": "canceled", "message": "پرداخت لغو شد"})
		return
	}

	if err := s.payment.VerifyPayment(c.Request.Context(), trackID); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "message": "پرداخت با موفقیت انجام شد"})
}

// uploadFile آپلود فایل پیوست
func (s *Server) uploadFile(c *gin.Context) {
	userID := c.GetUint("user_id")

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "فایلی ارسال نشده است"})
		return
	}

	record, err := s.files.SaveUpload(userID, header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ذخیره فایل"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         record.ID,
		"filename":   record.Filename,
		"size_bytes": record.SizeBytes,
	})
}

// createSession ایجاد گفتگوی جدید
func (s *Server) createSession(c *gin.Context) {
	userID := c.GetUint("user_id")

	type request struct {
		ModelID uint   `json:"model_id" binding:"required"`
		Persona string `json:"persona"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	session, err := s.chat.CreateSession(userID, req.ModelID, req.Persona)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ایجاد گفتگو"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// listSessions فهرست گفتگوها با صفحه‌بندی
func (s *Server) listSessions(c *gin.Context) {
	userID := c.GetUint("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, total, err := s.chat.ListSessions(userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن گفتگوها"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

// getSessionMessages تاریخچه فعال گفتگو
func (s *Server) getSessionMessages(c *gin.Context) {
	userID := c.GetUint("user_id")

	session, ok := s.sessionFromParam(c, userID)
	if !ok {
		return
	}

	messages, err := s.chat.History(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن پیام‌ها"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// setSessionModel تغییر مدل گفتگو
func (s *Server) setSessionModel(c *gin.Context) {
	userID := c.GetUint("user_id")

	session, ok := s.sessionFromParam(c, userID)
	if !ok {
		return
	}

	type request struct {
		ModelID uint `json:"model_id" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	var model database.AIModel
	if err := s.db.Where("is_active = ?", true).First(&model, req.ModelID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "مدل یافت نشد"})
		return
	}

	if err := s.chat.SetSessionModel(session.ID, model.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در تغییر مدل"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "مدل گفتگو تغییر کرد"})
}

// setSessionTitle تغییر عنوان گفتگو توسط کاربر
func (s *Server) setSessionTitle(c *gin.Context) {
	userID := c.GetUint("user_id")

	session, ok := s.sessionFromParam(c, userID)
	if !ok {
		return
	}

	type request struct {
		Title string `json:"title" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	title := utils.TruncateRunes(req.Title, 50)
	if err := s.chat.SetSessionTitle(session.ID, title); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در تغییر عنوان"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"title": title})
}

// sendMessage نوبت گفتگو: پذیرش، ثبت پیام کاربر و استریم پاسخ
func (s *Server) sendMessage(c *gin.Context) {
	userID := c.GetUint("user_id")

	type request struct {
		Content    string `json:"content" binding:"required"`
		FileIDs    []uint `json:"file_ids"`
		WantsImage bool   `json:"wants_image"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "کاربر یافت نشد"})
		return
	}

	session, ok := s.sessionFromParam(c, userID)
	if !ok {
		return
	}

	var model database.AIModel
	if err := s.db.First(&model, session.AIModelID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "مدل گفتگو یافت نشد"})
		return
	}

	files, err := s.files.GetUserFiles(userID, req.FileIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// بررسی کامل سهمیه پیش از هر ثبتی
	result := s.admit.ValidateAll(user, &model, services.ToFileInfo(files), req.WantsImage)
	if !result.OK {
		c.JSON(result.Status, gin.H{"error": result.Message})
		return
	}

	userMessage, err := s.chat.AddUserMessage(session.ID, req.Content, req.FileIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در ثبت پیام"})
		return
	}

	s.streamTurn(c, func(emit services.EmitFunc) error {
		return s.stream.StreamChatTurn(c.Request.Context(), user, session, result.Plan, &model,
			userMessage, req.WantsImage, 0, emit)
	})
}

// editMessage ویرایش پیام کاربر و تولید مجدد پاسخ
func (s *Server) editMessage(c *gin.Context) {
	userID := c.GetUint("user_id")

	type request struct {
		Content string `json:"content" binding:"required"`
	}

	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "درخواست نامعتبر است"})
		return
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "کاربر یافت نشد"})
		return
	}

	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "شناسه گفتگو نامعتبر است"})
		return
	}
	messageUUID := c.Param("uuid")

	s.streamTurn(c, func(emit services.EmitFunc) error {
		result, err := s.edit.EditMessage(c.Request.Context(), user, uint(sessionID), messageUUID, req.Content, emit)
		if err != nil {
			return err
		}
		if result != nil && !result.OK {
			return &denialError{result: result}
		}
		return nil
	})
}

// denialError رد شدن پذیرش در میانه جریان ویرایش
type denialError struct {
	result *services.AdmissionResult
}

func (e *denialError) Error() string {
	return e.result.Message
}

// streamTurn اجرای نوبت به صورت SSE؛ خطای پیش از اولین بایت
// به صورت JSON معمولی برمی‌گردد
func (s *Server) streamTurn(c *gin.Context, run func(emit services.EmitFunc) error) {
	started := false

	emit := func(event services.StreamEvent) error {
		if !started {
			started = true
			c.Writer.Header().Set("Content-Type", "text/event-stream")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
			c.Writer.WriteHeader(http.StatusOK)
		}

		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := run(emit)
	if err != nil {
		var denial *denialError
		if errors.As(err, &denial) {
			if !started {
				c.JSON(denial.result.Status, gin.H{"error": denial.result.Message})
			}
			return
		}
		if !started {
			c.JSON(http.StatusBadGateway, gin.H{"error": "خطا در ارتباط با سرویس هوش مصنوعی"})
			return
		}
		utils.LogError("api", "خطا در میانه جریان", err)
		return
	}

	if started {
		fmt.Fprint(c.Writer, "data: [DONE]\n\n")
		c.Writer.Flush()
	}
}

func (s *Server) sessionFromParam(c *gin.Context, userID uint) (*database.ChatSession, bool) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "شناسه گفتگو نامعتبر است"})
		return nil, false
	}

	session, err := s.chat.GetSession(uint(sessionID), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "گفتگو یافت نشد"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "خطا در خواندن گفتگو"})
		}
		return nil, false
	}
	return session, true
}
