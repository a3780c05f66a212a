package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/sentia-ai/ragbot/pkg/channels"
	cfgPkg "github.com/sentia-ai/ragbot/pkg/config"
	"github.com/sentia-ai/ragbot/pkg/history"
	"github.com/sentia-ai/ragbot/pkg/llm"
	"github.com/sentia-ai/ragbot/pkg/pipeline"
	"github.com/sentia-ai/ragbot/pkg/retrieval"
	"github.com/sentia-ai/ragbot/pkg/store"
	"github.com/sentia-ai/ragbot/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	config, err := cfgPkg.LoadConfig(configPath)
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

	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Model:      config.LLM.EmbeddingModel,
		APIKey:     config.LLM.APIKey,
		Dimensions: config.LLM.EmbeddingDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	composer, err := llm.NewComposer(llm.ComposerConfig{
		Model:       config.LLM.Model,
		APIKey:      config.LLM.APIKey,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize composer: %w", err)
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

	if err := vectorStore.Load(context.Background()); err != nil {
		logger.Warn("vector table not loaded, run the update command first", "err", err)
	}

	engine := retrieval.New(embedder, vectorStore, logger)
	sessions := history.New(config.History.MaxHistory)
	responder := pipeline.New(engine, composer, sessions, config.Retrieval.TopK, logger)

	var messenger *channels.MessengerBot
	if config.Messenger.Enabled {
		messenger = channels.NewMessengerBot(channels.MessengerConfig{
			PageAccessToken: config.Messenger.PageAccessToken,
			VerifyToken:     config.Messenger.VerifyToken,
			AppSecret:       config.Messenger.AppSecret,
			AllowUnsigned:   config.Messenger.AllowUnsigned,
		}, responder, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Telegram.Enabled {
		bot := channels.NewTelegramBot(channels.TelegramConfig{
			Token: config.Telegram.Token,
		}, responder, logger)
		go bot.Run(ctx)
		color.Green("✓ Telegram bot started")
	}

	srv := server.New(server.Config{
		Port:      config.Server.Port,
		StaticDir: config.Server.StaticDir,
	}, responder, messenger, logger)

	color.Cyan("Chatbot server listening on port %s", config.Server.Port)
	return srv.Run(ctx)
}
