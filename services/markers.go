package services

import (
	"bytes"
	"encoding/json"
)

// نشانگرهای داده خارج از باند که آداپتور بالادست داخل جریان متن می‌گذارد
const (
	markerUsageStart  = "[USAGE_DATA]"
	markerUsageEnd    = "[USAGE_DATA_END]"
	markerImagesStart = "[IMAGES]"
	markerImagesEnd   = "[IMAGES_END]"
)

// UsageData گزارش مصرف توکن سرویس بالادست
type UsageData struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ImagesData محموله تصویر داخل جریان
type ImagesData struct {
	Images []ImageItem `json:"images"`
}

// ImageItem یک تصویر تولیدشده؛ آدرس یا base64
type ImageItem struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

type parserState int

const (
	stateText parserState = iota
	stateInUsage
	stateInImages
)

// MarkerParser ماشین حالت جداکننده بلوک‌های نشانگر از جریان بایت.
// بایت‌های ناقصِ یک نشانگر بین chunk‌ها بافر می‌شوند.
type MarkerParser struct {
	state   parserState
	pending []byte

	usage    *UsageData
	rawUsage []byte
}

func NewMarkerParser() *MarkerParser {
	return &MarkerParser{}
}

// FeedResult خروجی پردازش یک chunk
type FeedResult struct {
	Text   string
	Images []ImagesData
}

// Feed پردازش یک chunk از جریان؛ متن قابل ارسال و تصاویر استخراج‌شده
// را برمی‌گرداند. داده usage تا پایان جریان نگه داشته می‌شود.
func (p *MarkerParser) Feed(chunk []byte) FeedResult {
	p.pending = append(p.pending, chunk...)

	var out bytes.Buffer
	var images []ImagesData

	for {
		switch p.state {
		case stateText:
			usageIdx := bytes.Index(p.pending, []byte(markerUsageStart))
			imagesIdx := bytes.Index(p.pending, []byte(markerImagesStart))

			idx, start := -1, ""
			if usageIdx >= 0 && (imagesIdx < 0 || usageIdx < imagesIdx) {
				idx, start = usageIdx, markerUsageStart
			} else if imagesIdx >= 0 {
				idx, start = imagesIdx, markerImagesStart
			}

			if idx < 0 {
				// احتمال شروع نشانگر در انتهای بافر؛ آن پیشوند نگه داشته می‌شود
				keep := maxPartialPrefix(p.pending, markerUsageStart)
				if k := maxPartialPrefix(p.pending, markerImagesStart); k > keep {
					keep = k
				}
				emit := len(p.pending) - keep
				out.Write(p.pending[:emit])
				p.pending = p.pending[emit:]
				return FeedResult{Text: out.String(), Images: images}
			}

			out.Write(p.pending[:idx])
			p.pending = p.pending[idx+len(start):]
			if start == markerUsageStart {
				p.state = stateInUsage
			} else {
				p.state = stateInImages
			}

		case stateInUsage:
			end := bytes.Index(p.pending, []byte(markerUsageEnd))
			if end < 0 {
				return FeedResult{Text: out.String(), Images: images}
			}

			p.rawUsage = append([]byte(nil), p.pending[:end]...)
			var usage UsageData
			if err := json.Unmarshal(p.rawUsage, &usage); err == nil {
				p.usage = &usage
			}
			p.pending = p.pending[end+len(markerUsageEnd):]
			p.state = stateText

		case stateInImages:
			end := bytes.Index(p.pending, []byte(markerImagesEnd))
			if end < 0 {
				return FeedResult{Text: out.String(), Images: images}
			}

			var data ImagesData
			if err := json.Unmarshal(p.pending[:end], &data); err == nil {
				images = append(images, data)
			}
			p.pending = p.pending[end+len(markerImagesEnd):]
			p.state = stateText
		}
	}
}

// Flush پایان جریان؛ اگر پیشوند ناقص یک نشانگر باقی مانده باشد
// به عنوان متن معمولی برگردانده می‌شود
func (p *MarkerParser) Flush() string {
	if p.state != stateText {
		// نشانگر بسته نشد؛ محموله ناقص دور ریخته می‌شود
		p.pending = nil
		p.state = stateText
		return ""
	}
	text := string(p.pending)
	p.pending = nil
	return text
}

// Usage داده مصرف گزارش‌شده؛ nil اگر نشانگر usage نیامده باشد
func (p *MarkerParser) Usage() *UsageData {
	return p.usage
}

// maxPartialPrefix طول بلندترین پسوند buf که پیشوند سره marker است
func maxPartialPrefix(buf []byte, marker string) int {
	max := len(marker) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for l := max; l > 0; l-- {
		if bytes.Equal(buf[len(buf)-l:], []byte(marker[:l])) {
			return l
		}
	}
	return 0
}
