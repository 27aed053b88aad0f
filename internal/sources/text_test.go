package sources

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"entities", "Sức khỏe &amp; Đời sống", "Sức khỏe & Đời sống"},
		{"single quotes", "Bộ Y tế 'khuyến cáo'", "Bộ Y tế khuyến cáo"},
		{"smart quotes", "‘Cảnh báo’ mới", "Cảnh báo mới"},
		{"repeated punctuation", "Thật sao?? Tuyệt!!!", "Thật sao? Tuyệt!"},
		{"whitespace", "  nhiều \n\t khoảng   trắng ", "nhiều khoảng trắng"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "ngắn", Truncate("ngắn", 200))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		long := strings.Repeat("ệ", 250)
		got := Truncate(long, 200)
		assert.Equal(t, 200, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, "..."))
	})

	t.Run("tiny limit", func(t *testing.T) {
		assert.Equal(t, "ab", Truncate("abcdef", 2))
	})
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<p>Hello <b>world</b></p><p>Second <a href="https://example.com">line</a></p><img src="x.png">`)

	assert.Contains(t, got, "Hello world")
	assert.Contains(t, got, "Second line")
	assert.NotContains(t, got, "<")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "example.com")
	assert.NotContains(t, got, "\n")
}

func TestHTMLToText_PlainText(t *testing.T) {
	assert.Equal(t, "không có thẻ", HTMLToText("  không   có thẻ "))
	assert.Equal(t, "", HTMLToText("   "))
}

func TestStripMarkdown(t *testing.T) {
	got := StripMarkdown("## Tiêu đề\n- **một** mục\n[liên kết](https://x.vn)\n---")

	assert.Contains(t, got, "Tiêu đề")
	assert.Contains(t, got, "một mục")
	assert.Contains(t, got, "liên kết")
	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "https://x.vn")
}
