package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	cfgPkg "github.com/sentia-ai/ragbot/pkg/config"
	"github.com/sentia-ai/ragbot/pkg/ingest"
	"github.com/sentia-ai/ragbot/pkg/llm"
	"github.com/sentia-ai/ragbot/pkg/parser"
	"github.com/sentia-ai/ragbot/pkg/store"
	"github.com/sentia-ai/ragbot/pkg/tokenizer"
)

const usdToVND = 24000

type flags struct {
	configPath string
	crawlFile  string
	docFile    string
	docTitle   string
	docURL     string
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.crawlFile, "file", "", "Crawl export to ingest (overrides config)")
	flag.StringVar(&f.docFile, "doc", "", "Single text document to append with overlapping windows")
	flag.StringVar(&f.docTitle, "title", "", "Title for the appended document (defaults to the file name)")
	flag.StringVar(&f.docURL, "url", "", "Source URL recorded for the appended document")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	config, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	codec, err := tokenizer.New(tokenizer.DefaultEncoding)
	if err != nil {
		return fmt.Errorf("failed to load tokenizer: %w", err)
	}

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Model:      config.LLM.EmbeddingModel,
		APIKey:     config.LLM.APIKey,
		Dimensions: config.LLM.EmbeddingDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: config.Database.URL,
		TableName:  config.Database.TableName,
		VectorDim:  config.LLM.EmbeddingDim,
		IndexLists: config.Database.IndexLists,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer vectorStore.Close()

	pipe := ingest.New(codec, embedder, vectorStore, ingest.Config{
		BatchSize:           config.Ingest.BatchSize,
		SplitThreshold:      config.Ingest.SplitThreshold,
		MaxChunkTokens:      config.Ingest.MaxChunkTokens,
		FallbackChunkTokens: config.Ingest.FallbackChunkTokens,
		BatchTokenWarn:      config.Ingest.BatchTokenWarn,
		InterBatchDelay:     time.Duration(config.Ingest.DelaySeconds * float64(time.Second)),
	}, logger)

	if f.docFile != "" {
		return appendDocument(config, pipe, vectorStore, f)
	}
	return rebuildFromCrawl(config, pipe, f.crawlFile)
}

// rebuildFromCrawl drops the collection and re-embeds every page of the
// crawl export.
func rebuildFromCrawl(config *cfgPkg.Config, pipe *ingest.Pipeline, crawlFile string) error {
	if crawlFile == "" {
		crawlFile = config.Ingest.CrawlFile
	}

	color.Blue("\nParsing crawl export %s", crawlFile)
	pages, err := parser.ParseFile(crawlFile)
	if err != nil {
		return fmt.Errorf("failed to parse crawl file: %w", err)
	}
	color.Green("✓ Parsed %d pages", len(pages))

	totalBatches := (len(pages) + config.Ingest.BatchSize - 1) / config.Ingest.BatchSize
	bar := getProgressBar(totalBatches, "🔄 Embedding pages...")
	pipe.OnBatch = func(done, total int) {
		bar.Set(done)
	}

	start := time.Now()
	report, err := pipe.Run(context.Background(), pages)
	bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	color.Green("✓ Ingestion complete in %s", time.Since(start).Round(time.Second))
	printReport(report)
	return nil
}

// appendDocument embeds one ad-hoc text file through overlapping windows and
// adds it to the existing collection without a rebuild.
func appendDocument(config *cfgPkg.Config, pipe *ingest.Pipeline, vectorStore *store.VectorStore, f flags) error {
	data, err := os.ReadFile(f.docFile)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("document %s is empty", f.docFile)
	}

	title := f.docTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(f.docFile), filepath.Ext(f.docFile))
	}

	// The collection must already exist; appending never creates it.
	if err := vectorStore.Load(context.Background()); err != nil {
		return fmt.Errorf("collection unavailable, run a full rebuild first: %w", err)
	}

	color.Blue("\nAppending %s (windows of %d tokens, overlap %d)",
		f.docFile, config.Chunker.ChunkSize, config.Chunker.ChunkOverlap)

	start := time.Now()
	report, err := pipe.IngestDocument(context.Background(), title, f.docURL, text,
		config.Chunker.ChunkSize, config.Chunker.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	color.Green("✓ Document appended in %s", time.Since(start).Round(time.Second))
	printReport(report)
	return nil
}

func printReport(report ingest.Report) {
	if report.PagesParsed > 0 {
		fmt.Printf("  Pages parsed:      %d\n", report.PagesParsed)
	}
	fmt.Printf("  Records stored:    %d\n", report.ItemsStored)
	fmt.Printf("  Records failed:    %d\n", report.ItemsFailed)
	fmt.Printf("  Batches:           %d (%d fell back to per-item)\n", report.Batches, report.FallbackBatches)
	fmt.Printf("  Tokens embedded:   %d\n", report.TokensEmbedded)
	fmt.Printf("  Success rate:      %.1f%%\n", report.SuccessRate())
	fmt.Printf("  Estimated cost:    $%.4f (~%.0f VND)\n", report.CostUSD, report.CostUSD*usdToVND)

	if report.ItemsFailed > 0 {
		color.Yellow("⚠ %d records failed to embed, see logs above", report.ItemsFailed)
	}
}
