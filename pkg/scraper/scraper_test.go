package scraper

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeLink(t *testing.T) {
	s, err := NewWithConfig(ScraperConfig{BaseURL: "https://sentia.edu.vn"}, discardLogger())
	require.NoError(t, err)

	tests := []struct {
		name string
		base string
		href string
		want string
		ok   bool
	}{
		{"relative path", "https://sentia.edu.vn/", "/tuyen-sinh", "https://sentia.edu.vn/tuyen-sinh", true},
		{"absolute same domain", "https://sentia.edu.vn/", "https://sentia.edu.vn/hoc-phi", "https://sentia.edu.vn/hoc-phi", true},
		{"fragment stripped", "https://sentia.edu.vn/", "/about#team", "https://sentia.edu.vn/about", true},
		{"query stripped", "https://sentia.edu.vn/", "/news?page=2", "https://sentia.edu.vn/news", true},
		{"external domain", "https://sentia.edu.vn/", "https://facebook.com/sentia", "", false},
		{"binary file", "https://sentia.edu.vn/", "/brochure.pdf", "", false},
		{"image file", "https://sentia.edu.vn/", "/logo.PNG", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.normalizeLink(tt.base, tt.href)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCrawlCollectsPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Trang chủ</title></head><body>
			<nav>menu bỏ qua</nav>
			<p>Sentia School là trường phổ thông liên cấp chất lượng cao.</p>
			<a href="/tuyen-sinh">Tuyển sinh</a>
			<a href="https://facebook.com/sentia">FB</a>
		</body></html>`))
	})
	mux.HandleFunc("/tuyen-sinh", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Tuyển sinh</title></head><body>
			<script>ignored()</script>
			<p>Thông tin tuyển sinh năm học 2025.</p>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: srv.URL, RateLimit: 1000}, discardLogger())
	require.NoError(t, err)

	pages, err := s.Crawl(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "Trang chủ", pages[0].Title)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, 2, pages[0].TotalPages)
	assert.Contains(t, pages[0].Content, "trường phổ thông liên cấp")
	assert.NotContains(t, pages[0].Content, "menu bỏ qua")

	assert.Equal(t, "Tuyển sinh", pages[1].Title)
	assert.NotContains(t, pages[1].Content, "ignored")
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<p>Trang với rất nhiều liên kết nội bộ để kiểm tra giới hạn.</p>
			<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := NewWithConfig(ScraperConfig{BaseURL: srv.URL, MaxPages: 2, RateLimit: 1000}, discardLogger())
	require.NoError(t, err)

	pages, err := s.Crawl(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pages), 2)
}
