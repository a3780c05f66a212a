package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/sentia-ai/ragbot/pkg/config"
	"github.com/sentia-ai/ragbot/pkg/scraper"
)

func main() {
	var configPath, baseURL, output string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&baseURL, "url", "", "Base URL to crawl (overrides config)")
	flag.StringVar(&output, "out", "", "Output file (overrides config)")
	flag.Parse()

	if err := run(configPath, baseURL, output); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, baseURL, output string) error {
	config, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if baseURL == "" {
		baseURL = config.Crawler.BaseURL
	}
	if output == "" {
		output = config.Crawler.OutputFile
	}
	if baseURL == "" {
		return fmt.Errorf("no base URL: pass -url or set crawler.base_url")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var fetched int32
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.BlueString("🌐 Crawling %s...", baseURL)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:   baseURL,
		MaxPages:  config.Crawler.MaxPages,
		RateLimit: config.Crawler.RateLimit,
		OnProgress: func(url string) {
			bar.Set(int(atomic.AddInt32(&fetched, 1)))
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}

	start := time.Now()
	pages, err := s.Crawl(context.Background())
	bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if err := scraper.WriteCrawlFile(output, pages); err != nil {
		return fmt.Errorf("failed to write crawl file: %w", err)
	}

	color.Green("✓ Crawled %d pages in %s → %s", len(pages), time.Since(start).Round(time.Second), output)
	return nil
}
