package parser

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sentia-ai/ragbot/internal/models"
)

// MinContentLength is the minimum trimmed content length a page must carry
// to survive parsing. Shorter pages are noise from the crawl.
const MinContentLength = 50

var (
	pageDelimiter = strings.Repeat("=", 80)
	titlePattern  = regexp.MustCompile(`\[TRANG (\d+)/(\d+)\] (.+)`)
)

// ParseFile reads a crawl export file and returns its retained pages.
func ParseFile(path string) ([]models.PageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Parse splits a crawl export into page records. Blocks are delimited by an
// 80-character "=" rule; the first block is the file header and is skipped.
// Each block carries a "[TRANG X/Y] TITLE" line, a "URL:" line, a "Độ dài:"
// line, a "--" separator and the page body. Pages with near-empty content
// are discarded.
func Parse(content string) []models.PageRecord {
	blocks := strings.Split(content, pageDelimiter)

	var pages []models.PageRecord
	for _, block := range blocks[1:] {
		page, ok := parseBlock(block)
		if !ok {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

func parseBlock(block string) (models.PageRecord, bool) {
	var page models.PageRecord

	block = strings.TrimSpace(block)
	if block == "" {
		return page, false
	}

	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		return page, false
	}

	if m := titlePattern.FindStringSubmatch(strings.TrimSpace(lines[0])); m != nil {
		page.PageNumber, _ = strconv.Atoi(m[1])
		page.TotalPages, _ = strconv.Atoi(m[2])
		page.Title = m[3]
	}

	// Header lines run until the "--" rule, the body follows it.
	contentStart := 3
	for i, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "URL:"):
			page.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL:"))
		case strings.HasPrefix(line, "Độ dài:"):
			page.LengthLabel = strings.TrimSpace(strings.TrimPrefix(line, "Độ dài:"))
		case strings.HasPrefix(line, "--"):
			contentStart = i + 2
		}
		if strings.HasPrefix(line, "--") {
			break
		}
	}

	if contentStart < len(lines) {
		page.Content = strings.TrimSpace(strings.Join(lines[contentStart:], "\n"))
	}

	if len(strings.TrimSpace(page.Content)) <= MinContentLength {
		return page, false
	}
	return page, true
}
