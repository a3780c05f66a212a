package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/sentia-ai/ragbot/internal/models"
)

// binaryExtensions are skipped during link discovery; only HTML pages carry
// useful text.
var binaryExtensions = regexp.MustCompile(`(?i)\.(pdf|jpg|jpeg|png|gif|zip|doc|docx|xls|xlsx|ppt|pptx)$`)

type ScraperConfig struct {
	BaseURL    string
	MaxPages   int
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	OnProgress func(url string)
}

// Scraper walks the site breadth-first from BaseURL, collecting same-domain
// pages as PageRecords in discovery order.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewWithConfig(config ScraperConfig, logger *slog.Logger) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxPages == 0 {
		config.MaxPages = 1000
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Scraper{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logger,
	}, nil
}

// Crawl discovers all same-domain links breadth-first, then fetches each
// page's text content. Pages that fail to fetch are skipped, not fatal.
func (s *Scraper) Crawl(ctx context.Context) ([]models.PageRecord, error) {
	links, err := s.discoverLinks(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("discovery complete", "links", len(links))

	var pages []models.PageRecord
	for _, link := range links {
		if err := s.limiter.Wait(ctx); err != nil {
			return pages, err
		}

		title, content, err := s.fetchPage(ctx, link)
		if err != nil {
			s.logger.Warn("failed to fetch page", "url", link, "err", err)
			continue
		}
		if content == "" {
			continue
		}

		pages = append(pages, models.PageRecord{
			Title:       title,
			URL:         link,
			Content:     content,
			LengthLabel: fmt.Sprintf("%d ký tự", len([]rune(content))),
		})

		if s.config.OnProgress != nil {
			s.config.OnProgress(link)
		}
	}

	// Page numbering is assigned once the total is known.
	for i := range pages {
		pages[i].PageNumber = i + 1
		pages[i].TotalPages = len(pages)
	}
	return pages, nil
}

// discoverLinks walks anchor tags breadth-first within the base domain,
// dropping fragments, query strings and binary file links.
func (s *Scraper) discoverLinks(ctx context.Context) ([]string, error) {
	seen := map[string]bool{s.config.BaseURL: true}
	queue := []string{s.config.BaseURL}
	var ordered []string

	for len(queue) > 0 && len(ordered) < s.config.MaxPages {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, current)

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		doc, err := s.fetchDocument(ctx, current)
		if err != nil {
			s.logger.Warn("failed to scan links", "url", current, "err", err)
			continue
		}

		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok {
				return
			}
			link, ok := s.normalizeLink(current, href)
			if !ok || seen[link] {
				return
			}
			seen[link] = true
			queue = append(queue, link)
		})
	}
	return ordered, nil
}

func (s *Scraper) normalizeLink(base, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	abs := baseURL.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawQuery = ""
	link := abs.String()

	if !strings.HasPrefix(link, s.config.BaseURL) {
		return "", false
	}
	if binaryExtensions.MatchString(link) {
		return "", false
	}
	return link, true
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// fetchPage extracts the page title and its body text with scripts, styles
// and chrome elements stripped and whitespace collapsed.
func (s *Scraper) fetchPage(ctx context.Context, pageURL string) (string, string, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", "", err
	}

	title := strings.TrimSpace(doc.Find("title").Text())
	if title == "" {
		title = pageURL
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()
	content := strings.TrimSpace(strings.Join(strings.Fields(doc.Find("body").Text()), " "))

	return title, content, nil
}
