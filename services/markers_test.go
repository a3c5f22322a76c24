package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerParserPlainText(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte("سلام، حال شما چطور است؟"))
	assert.Equal(t, "سلام، حال شما چطور است؟", result.Text)
	assert.Empty(t, result.Images)

	assert.Equal(t, "", p.Flush())
	assert.Nil(t, p.Usage())
}

func TestMarkerParserUsageBlock(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte(`پاسخ[USAGE_DATA]{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}[USAGE_DATA_END]`))
	assert.Equal(t, "پاسخ", result.Text)

	usage := p.Usage()
	require.NotNil(t, usage)
	assert.Equal(t, int64(5), usage.PromptTokens)
	assert.Equal(t, int64(7), usage.CompletionTokens)
	assert.Equal(t, int64(12), usage.TotalTokens)
}

func TestMarkerParserMarkerSplitAcrossChunks(t *testing.T) {
	p := NewMarkerParser()

	// نشانگر وسط دو chunk نصف شده است
	result := p.Feed([]byte("متن اول [USAGE_"))
	assert.Equal(t, "متن اول ", result.Text)

	result = p.Feed([]byte(`DATA]{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}[USAGE_DATA_END] متن دوم`))
	assert.Equal(t, " متن دوم", result.Text)

	usage := p.Usage()
	require.NotNil(t, usage)
	assert.Equal(t, int64(3), usage.TotalTokens)
}

func TestMarkerParserByteByByte(t *testing.T) {
	p := NewMarkerParser()
	input := `الف[IMAGES]{"images":[{"url":"https://cdn.example.com/a.png"}]}[IMAGES_END]ب`

	var text string
	var images []ImagesData
	for i := 0; i < len(input); i++ {
		result := p.Feed([]byte{input[i]})
		text += result.Text
		images = append(images, result.Images...)
	}
	text += p.Flush()

	assert.Equal(t, "الفب", text)
	require.Len(t, images, 1)
	require.Len(t, images[0].Images, 1)
	assert.Equal(t, "https://cdn.example.com/a.png", images[0].Images[0].URL)
}

func TestMarkerParserImagesBlock(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte(`تصویر شما آماده است [IMAGES]{"images":[{"url":"https://x/1.png"},{"b64_json":"aGk="}]}[IMAGES_END]`))
	assert.Equal(t, "تصویر شما آماده است ", result.Text)
	require.Len(t, result.Images, 1)
	require.Len(t, result.Images[0].Images, 2)
	assert.Equal(t, "https://x/1.png", result.Images[0].Images[0].URL)
	assert.Equal(t, "aGk=", result.Images[0].Images[1].B64JSON)
}

func TestMarkerParserUnclosedBlockDiscarded(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte(`متن[USAGE_DATA]{"prompt_tokens":1`))
	assert.Equal(t, "متن", result.Text)

	// جریان وسط بلوک قطع شد؛ محموله ناقص نباید وارد متن شود
	assert.Equal(t, "", p.Flush())
	assert.Nil(t, p.Usage())
}

func TestMarkerParserPartialPrefixFlushedAsText(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte("متن[USA"))
	assert.Equal(t, "متن", result.Text)

	// جریان تمام شد و پیشوند هرگز نشانگر کامل نشد
	assert.Equal(t, "[USA", p.Flush())
}

func TestMarkerParserBracketNotMarker(t *testing.T) {
	p := NewMarkerParser()

	result := p.Feed([]byte("آرایه [1, 2, 3] معتبر است"))
	text := result.Text + p.Flush()
	assert.Equal(t, "آرایه [1, 2, 3] معتبر است", text)
}

func TestMarkerParserMultipleBlocks(t *testing.T) {
	p := NewMarkerParser()

	input := `اول[IMAGES]{"images":[{"url":"u1"}]}[IMAGES_END]دوم[USAGE_DATA]{"total_tokens":9}[USAGE_DATA_END]سوم`
	result := p.Feed([]byte(input))

	assert.Equal(t, "اولدومسوم", result.Text+p.Flush())
	require.Len(t, result.Images, 1)
	require.NotNil(t, p.Usage())
	assert.Equal(t, int64(9), p.Usage().TotalTokens)
}
