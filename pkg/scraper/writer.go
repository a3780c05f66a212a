package scraper

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sentia-ai/ragbot/internal/models"
)

// WriteCrawlFile renders pages into the delimited crawl export consumed by
// the parser: a file header, then per page an 80-character "=" rule, the
// "[TRANG X/Y] TITLE" line, URL and length lines, an 80-character "-" rule,
// and the body.
func WriteCrawlFile(path string, pages []models.PageRecord) error {
	var b strings.Builder

	b.WriteString("SENTIA WEBSITE CRAWL\n")
	fmt.Fprintf(&b, "Ngày: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Tổng số trang: %d\n\n", len(pages))

	for i, page := range pages {
		b.WriteString(strings.Repeat("=", 80) + "\n")
		fmt.Fprintf(&b, "[TRANG %d/%d] %s\n", i+1, len(pages), strings.ToUpper(page.Title))
		fmt.Fprintf(&b, "URL: %s\n", page.URL)
		fmt.Fprintf(&b, "Độ dài: %s\n", page.LengthLabel)
		b.WriteString(strings.Repeat("-", 80) + "\n")
		b.WriteString(page.Content + "\n\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
