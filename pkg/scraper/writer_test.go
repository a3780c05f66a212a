package scraper

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentia-ai/ragbot/internal/models"
	"github.com/sentia-ai/ragbot/pkg/parser"
)

func TestWriteCrawlFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.txt")

	pages := []models.PageRecord{
		{
			Title:       "Trang chủ",
			URL:         "https://sentia.edu.vn/",
			LengthLabel: "120 ký tự",
			Content:     strings.Repeat("Nội dung trang chủ của trường. ", 4),
		},
	}

	require.NoError(t, WriteCrawlFile(path, pages))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "SENTIA WEBSITE CRAWL")
	assert.Contains(t, text, "Tổng số trang: 1")
	assert.Contains(t, text, strings.Repeat("=", 80))
	assert.Contains(t, text, "[TRANG 1/1] TRANG CHỦ")
	assert.Contains(t, text, "URL: https://sentia.edu.vn/")
	assert.Contains(t, text, "Độ dài: 120 ký tự")
	assert.Contains(t, text, strings.Repeat("-", 80))
}

func TestWriteCrawlFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.txt")

	content := "Sentia School tuyển sinh năm học mới với nhiều chương trình học bổng hấp dẫn cho học sinh."
	pages := []models.PageRecord{
		{Title: "Tuyển sinh", URL: "https://sentia.edu.vn/ts", LengthLabel: "91 ký tự", Content: content},
		{Title: "Học phí", URL: "https://sentia.edu.vn/hp", LengthLabel: "91 ký tự", Content: content},
	}

	require.NoError(t, WriteCrawlFile(path, pages))

	parsed, err := parser.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, 1, parsed[0].PageNumber)
	assert.Equal(t, 2, parsed[0].TotalPages)
	assert.Equal(t, "TUYỂN SINH", parsed[0].Title)
	assert.Equal(t, "https://sentia.edu.vn/ts", parsed[0].URL)
	assert.Equal(t, content, parsed[0].Content)
	assert.Equal(t, "HỌC PHÍ", parsed[1].Title)
}
