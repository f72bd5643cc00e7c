package astrology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterImageFields_ByFieldName(t *testing.T) {
	data := map[string]any{
		"name":       "test",
		"avatar_url": "something",
		"user_image": "something",
		"pic_data":   "something",
		"logo":       "something",
		"result":     "keep",
	}

	filtered := FilterImageFields(data).(map[string]any)

	assert.Equal(t, "test", filtered["name"])
	assert.Equal(t, "keep", filtered["result"])
	assert.NotContains(t, filtered, "avatar_url")
	assert.NotContains(t, filtered, "user_image")
	assert.NotContains(t, filtered, "pic_data")
	assert.NotContains(t, filtered, "logo")
}

func TestFilterImageFields_ByValueContent(t *testing.T) {
	data := map[string]any{
		"data_url":  "data:image/jpeg;base64,/9j/4AAQ",
		"malformed": "data:image/image/jpeg;base64,abc",
		"blob":      strings.Repeat("QUJDRA", 200),
		"chart":     "https://cdn.example.com/chart.png",
		"site":      "https://example.com/page",
		"text":      "ordinary value",
	}

	filtered := FilterImageFields(data).(map[string]any)

	assert.NotContains(t, filtered, "data_url")
	assert.NotContains(t, filtered, "malformed")
	assert.NotContains(t, filtered, "blob")
	assert.NotContains(t, filtered, "chart")
	assert.Equal(t, "https://example.com/page", filtered["site"])
	assert.Equal(t, "ordinary value", filtered["text"])
}

func TestFilterImageFields_Recursive(t *testing.T) {
	data := map[string]any{
		"data": map[string]any{
			"base_image": "x",
			"list": []any{
				map[string]any{"thumb": "x", "desc": "keep"},
			},
		},
	}

	filtered := FilterImageFields(data).(map[string]any)
	inner := filtered["data"].(map[string]any)
	assert.NotContains(t, inner, "base_image")

	item := inner["list"].([]any)[0].(map[string]any)
	assert.NotContains(t, item, "thumb")
	assert.Equal(t, "keep", item["desc"])
}

func TestIsImageData_ShortStringsPass(t *testing.T) {
	assert.False(t, isImageData("short"))
	assert.False(t, isImageData("abc=="))
}
