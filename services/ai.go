package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AIService کلاینت سرویس تجمیع‌کننده بالادست
type AIService struct {
	apiEndpoint string
	apiKey      string
	client      *http.Client
}

func NewAIService(apiEndpoint, apiKey string) *AIService {
	return &AIService{
		apiEndpoint: apiEndpoint,
		apiKey:      apiKey,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// ContentPart بخش یک پیام ساخت‌یافته؛ متن یا آدرس تصویر
type ContentPart struct {
	Type     string    `json:"type"` // text یا image_url
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL آدرس تصویر؛ ممکن است data:<mime>;base64 باشد
type ImageURL struct {
	URL string `json:"url"`
}

// ChatRequestMessage پیام درخواست؛ Content یا رشته است یا فهرست بخش‌ها
type ChatRequestMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ChatRequest بدنه درخواست تکمیل گفتگو
type ChatRequest struct {
	Model      string               `json:"model"`
	Messages   []ChatRequestMessage `json:"messages"`
	Stream     bool                 `json:"stream"`
	Modalities []string             `json:"modalities,omitempty"`
	MaxTokens  int                  `json:"max_tokens,omitempty"`
}

// ChatResponse پاسخ غیرجریانی
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *UsageData `json:"usage"`
}

// streamChunk یک قطعه از پاسخ جریانی بالادست
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string      `json:"content"`
			Images  []ImageItem `json:"images,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *UsageData `json:"usage"`
}

// Complete فراخوانی یک‌ضرب غیرجریانی؛ برای تولید عنوان
func (s *AIService) Complete(ctx context.Context, model string, messages []ChatRequestMessage, maxTokens int) (string, *UsageData, error) {
	request := ChatRequest{
		Model:     model,
		Messages:  messages,
		Stream:    false,
		MaxTokens: maxTokens,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", nil, fmt.Errorf("خطا در ساخت درخواست: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", nil, fmt.Errorf("خطا در ایجاد درخواست: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("خطا در ارسال درخواست: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("خطای API هوش مصنوعی: کد %d, پاسخ: %s", resp.StatusCode, string(body))
	}

	var aiResponse ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&aiResponse); err != nil {
		return "", nil, fmt.Errorf("خطا در تجزیه پاسخ: %w", err)
	}
	if len(aiResponse.Choices) == 0 {
		return "", nil, errors.New("پاسخی از هوش مصنوعی دریافت نشد")
	}

	return aiResponse.Choices[0].Message.Content, aiResponse.Usage, nil
}

// StreamChat شروع تکمیل جریانی. خروجی یک جریان بایت است که متن پاسخ را
// همراه بلوک‌های نشانگر [IMAGES] و [USAGE_DATA] حمل می‌کند؛ همان قالبی
// که MarkerParser در پراکسی جدا می‌کند.
func (s *AIService) StreamChat(ctx context.Context, request ChatRequest) (io.ReadCloser, error) {
	request.Stream = true

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("خطا در ساخت درخواست: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("خطا در ایجاد درخواست: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("خطا در ارسال درخواست: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("خطای API هوش مصنوعی: کد %d, پاسخ: %s", resp.StatusCode, string(body))
	}

	pr, pw := io.Pipe()
	go s.adaptStream(resp.Body, pw)
	return pr, nil
}

// adaptStream تبدیل SSE بالادست به جریان بایت نشانگردار
func (s *AIService) adaptStream(body io.ReadCloser, pw *io.PipeWriter) {
	defer body.Close()

	var usage *UsageData

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			usage = chunk.Usage
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if len(delta.Images) > 0 {
			payload, err := json.Marshal(ImagesData{Images: delta.Images})
			if err == nil {
				fmt.Fprintf(pw, "%s%s%s", markerImagesStart, payload, markerImagesEnd)
			}
		}

		if delta.Content != "" {
			if _, err := io.WriteString(pw, delta.Content); err != nil {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		pw.CloseWithError(fmt.Errorf("خطا در خواندن جریان بالادست: %w", err))
		return
	}

	// گزارش مصرف همیشه در انتهای جریان می‌آید
	if usage != nil {
		if payload, err := json.Marshal(usage); err == nil {
			fmt.Fprintf(pw, "%s%s%s", markerUsageStart, payload, markerUsageEnd)
		}
	}

	pw.Close()
}
