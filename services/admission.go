package services

import (
	"net/http"

	"chatyar/database"
	"chatyar/utils"
)

// AdmissionService نقطه ورود واحد هر نوبتی که به سرویس بالادست می‌رود
type AdmissionService struct {
	subs     *SubscriptionService
	quota    *QuotaService
	media    *MediaQuotaService
	messages *LimitMessageService
}

func NewAdmissionService(subs *SubscriptionService, quota *QuotaService, media *MediaQuotaService, messages *LimitMessageService) *AdmissionService {
	return &AdmissionService{subs: subs, quota: quota, media: media, messages: messages}
}

// AdmissionResult نتیجه پذیرش همراه کد وضعیت HTTP
type AdmissionResult struct {
	OK      bool
	Kind    LimitKind
	Message string
	Status  int
	Plan    *database.Plan
}

// ValidateAll بررسی کامل پیش از نوبت: پلن، دسترسی مدل، سهمیه جامع،
// سهمیه تصویر و اعتبارسنجی فایل‌ها. اولین خطا بقیه را قطع می‌کند.
func (s *AdmissionService) ValidateAll(user *database.User, model *database.AIModel, files []FileInfo, wantsImage bool) AdmissionResult {
	plan, _, err := s.subs.CurrentPlan(user.ID)
	if err != nil {
		utils.LogError("admission", "خواندن پلن کاربر", err)
		return AdmissionResult{
			Kind:    KindGeneralLimit,
			Message: s.messages.MessageFor(KindGeneralLimit, ""),
			Status:  http.StatusInternalServerError,
		}
	}
	if plan == nil {
		return s.deny(KindSubscriptionRequired, s.messages.MessageFor(KindSubscriptionRequired, ""), nil)
	}

	if check := s.quota.ComprehensiveCheck(user, plan, model, DefaultProspectiveTokens); !check.OK {
		return s.deny(check.Kind, check.Message, plan)
	}

	if wantsImage {
		check, err := s.media.CheckImage(user, plan)
		if err != nil {
			utils.LogError("admission", "بررسی سهمیه تصویر", err)
			return AdmissionResult{
				Kind:    KindGeneralLimit,
				Message: s.messages.MessageFor(KindGeneralLimit, ""),
				Status:  http.StatusInternalServerError,
			}
		}
		if !check.OK {
			return s.deny(check.Kind, check.Message, plan)
		}
	}

	if len(files) > 0 {
		check, err := s.media.ValidateFiles(user, plan, files)
		if err != nil {
			utils.LogError("admission", "اعتبارسنجی فایل‌ها", err)
			return AdmissionResult{
				Kind:    KindGeneralLimit,
				Message: s.messages.MessageFor(KindGeneralLimit, ""),
				Status:  http.StatusInternalServerError,
			}
		}
		if !check.OK {
			return s.deny(check.Kind, check.Message, plan)
		}
	}

	return AdmissionResult{OK: true, Status: http.StatusOK, Plan: plan}
}

func (s *AdmissionService) deny(kind LimitKind, message string, plan *database.Plan) AdmissionResult {
	return AdmissionResult{
		Kind:    kind,
		Message: message,
		Status:  StatusForKind(kind),
		Plan:    plan,
	}
}
