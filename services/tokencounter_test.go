package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountAlwaysAtLeastOne(t *testing.T) {
	counter := NewTokenCounterService()
	assert.Equal(t, int64(1), counter.Count(""))
	assert.GreaterOrEqual(t, counter.Count("a"), int64(1))
	assert.GreaterOrEqual(t, counter.Count("سلام دنیا"), int64(1))
}

func TestCountIsDeterministic(t *testing.T) {
	counter := NewTokenCounterService()
	text := "متن آزمایشی برای شمارش توکن"
	assert.Equal(t, counter.Count(text), counter.Count(text))
}

func TestFallbackCount(t *testing.T) {
	// کف یک توکن حتی برای متن خالی
	assert.Equal(t, int64(1), fallbackCount(""))
	assert.Equal(t, int64(1), fallbackCount("abc"))
	assert.Equal(t, int64(1), fallbackCount("abcd"))
	assert.Equal(t, int64(2), fallbackCount("abcdefgh"))
}

func TestCountPartsSkipsImages(t *testing.T) {
	counter := NewTokenCounterService()

	parts := []ContentPart{
		{Type: "text", Text: "توضیح تصویر"},
		{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64,aGk="}},
	}

	// بخش تصویری نباید در شمارش محلی حساب شود
	assert.Equal(t, counter.Count("توضیح تصویر"), counter.CountParts(parts))
}
