package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// درگاه مبلغ را به ریال می‌پذیرد
const (
	minPaymentRials = 1_000
	maxPaymentRials = 500_000_000
)

// PaymentService کلاینت درگاه پرداخت زیبال
type PaymentService struct {
	db       *gorm.DB
	subs     *SubscriptionService
	endpoint string
	merchant string
	callback string
	client   *http.Client
}

func NewPaymentService(db *gorm.DB, subs *SubscriptionService, endpoint, merchant, callback string) *PaymentService {
	return &PaymentService{
		db:       db,
		subs:     subs,
		endpoint: endpoint,
		merchant: merchant,
		callback: callback,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type paymentRequest struct {
	Merchant    string `json:"merchant"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callbackUrl"`
	Description string `json:"description"`
	OrderID     string `json:"orderId"`
}

type paymentRequestResponse struct {
	Result  int    `json:"result"`
	TrackID int64  `json:"trackId"`
	Message string `json:"message"`
}

type paymentVerifyRequest struct {
	Merchant string `json:"merchant"`
	TrackID  int64  `json:"trackId"`
}

type paymentVerifyResponse struct {
	Result    int    `json:"result"`
	RefNumber int64  `json:"refNumber"`
	Message   string `json:"message"`
}

// RequestPayment ایجاد تراکنش و دریافت لینک پرداخت برای خرید اشتراک
func (s *PaymentService) RequestPayment(ctx context.Context, userID, planID uint, amountTomans decimal.Decimal) (string, error) {
	amountRials := amountTomans.Mul(decimal.NewFromInt(10))
	rials := amountRials.IntPart()
	if rials < minPaymentRials || rials > maxPaymentRials {
		return "", errors.New("مبلغ پرداخت خارج از محدوده مجاز است")
	}

	tx := database.FinancialTransaction{
		UserID: userID,
		PlanID: planID,
		Amount: amountTomans,
		Status: database.TxPending,
	}
	if err := s.db.Create(&tx).Error; err != nil {
		return "", fmt.Errorf("خطا در ثبت تراکنش: %w", err)
	}

	payload := paymentRequest{
		Merchant:    s.merchant,
		Amount:      rials,
		CallbackURL: s.callback,
		Description: "خرید اشتراک چت‌یار",
		OrderID:     strconv.FormatUint(uint64(tx.ID), 10),
	}

	var parsed paymentRequestResponse
	if err := s.post(ctx, "/request", payload, &parsed); err != nil {
		s.markFailed(&tx)
		return "", err
	}

	if parsed.Result != 100 {
		s.markFailed(&tx)
		return "", fmt.Errorf("خطای درگاه پرداخت: کد %d, پیام: %s", parsed.Result, parsed.Message)
	}

	trackID := strconv.FormatInt(parsed.TrackID, 10)
	if err := s.db.Model(&tx).Update("track_id", trackID).Error; err != nil {
		return "", fmt.Errorf("خطا در بروزرسانی تراکنش: %w", err)
	}

	utils.LogInfo("payment", fmt.Sprintf("تراکنش %d برای کاربر %d ایجاد شد", tx.ID, userID))
	return fmt.Sprintf("https://gateway.zibal.ir/start/%s", trackID), nil
}

// VerifyPayment تایید تراکنش پس از بازگشت از درگاه؛
// اشتراک فقط پس از تایید موفق فعال می‌شود
func (s *PaymentService) VerifyPayment(ctx context.Context, trackID string) error {
	var tx database.FinancialTransaction
	if err := s.db.Where("track_id = ?", trackID).First(&tx).Error; err != nil {
		return fmt.Errorf("تراکنش یافت نشد: %w", err)
	}

	if tx.Status == database.TxCompleted {
		return nil
	}

	trackNum, err := strconv.ParseInt(trackID, 10, 64)
	if err != nil {
		return errors.New("شناسه پیگیری نامعتبر است")
	}

	payload := paymentVerifyRequest{
		Merchant: s.merchant,
		TrackID:  trackNum,
	}

	var parsed paymentVerifyResponse
	if err := s.post(ctx, "/verify", payload, &parsed); err != nil {
		s.markFailed(&tx)
		return err
	}

	if parsed.Result != 100 {
		s.markFailed(&tx)
		return fmt.Errorf("پرداخت تایید نشد: کد %d, پیام: %s", parsed.Result, parsed.Message)
	}

	refNumber := strconv.FormatInt(parsed.RefNumber, 10)
	if err := s.subs.HandlePaymentSuccess(tx.UserID, tx.PlanID, tx.ID, refNumber); err != nil {
		return fmt.Errorf("خطا در فعال‌سازی اشتراک: %w", err)
	}

	utils.LogSuccess("payment", fmt.Sprintf("پرداخت تراکنش %d با شماره مرجع %s تایید شد", tx.ID, refNumber))
	return nil
}

func (s *PaymentService) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("خطا در ساخت درخواست پرداخت: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("خطا در ایجاد درخواست پرداخت: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("خطا در ارتباط با درگاه پرداخت: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("خطا در تجزیه پاسخ درگاه: %w", err)
	}
	return nil
}

func (s *PaymentService) markFailed(tx *database.FinancialTransaction) {
	if err := s.db.Model(tx).Update("status", database.TxFailed).Error; err != nil {
		utils.LogError("payment", fmt.Sprintf("علامت‌گذاری تراکنش ناموفق %d", tx.ID), err)
	}
}
