package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		EmbeddingDim   int     `yaml:"embedding_dim"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Database struct {
		URL        string `yaml:"url"`
		TableName  string `yaml:"table_name"`
		IndexLists int    `yaml:"index_lists"`
	} `yaml:"database"`

	Ingest struct {
		CrawlFile           string  `yaml:"crawl_file"`
		BatchSize           int     `yaml:"batch_size"`
		SplitThreshold      int     `yaml:"split_threshold"`
		MaxChunkTokens      int     `yaml:"max_chunk_tokens"`
		FallbackChunkTokens int     `yaml:"fallback_chunk_tokens"`
		BatchTokenWarn      int     `yaml:"batch_token_warn"`
		DelaySeconds        float64 `yaml:"delay_seconds"`
	} `yaml:"ingest"`

	Chunker struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"chunker"`

	Retrieval struct {
		TopK int `yaml:"top_k"`
	} `yaml:"retrieval"`

	History struct {
		MaxHistory int `yaml:"max_history"`
	} `yaml:"history"`

	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
	} `yaml:"telegram"`

	Messenger struct {
		Enabled         bool   `yaml:"enabled"`
		PageAccessToken string `yaml:"page_access_token"`
		VerifyToken     string `yaml:"verify_token"`
		AppSecret       string `yaml:"app_secret"`
		AllowUnsigned   bool   `yaml:"allow_unsigned"`
	} `yaml:"messenger"`

	Server struct {
		Port      string `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`

	Crawler struct {
		BaseURL    string  `yaml:"base_url"`
		MaxPages   int     `yaml:"max_pages"`
		RateLimit  float64 `yaml:"rate_limit"`
		OutputFile string  `yaml:"output_file"`
	} `yaml:"crawler"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragbot/config.yaml"),
			"/etc/ragbot/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "text-embedding-3-large"
	}
	if config.LLM.EmbeddingDim == 0 {
		config.LLM.EmbeddingDim = 3072
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "sentia_website"
	}
	if config.Database.IndexLists == 0 {
		config.Database.IndexLists = 1024
	}

	if config.Ingest.CrawlFile == "" {
		config.Ingest.CrawlFile = "sentia_full_website.txt"
	}
	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 3
	}
	if config.Ingest.SplitThreshold == 0 {
		config.Ingest.SplitThreshold = 6500
	}
	if config.Ingest.MaxChunkTokens == 0 {
		config.Ingest.MaxChunkTokens = 6000
	}
	if config.Ingest.FallbackChunkTokens == 0 {
		config.Ingest.FallbackChunkTokens = 5500
	}
	if config.Ingest.BatchTokenWarn == 0 {
		config.Ingest.BatchTokenWarn = 8000
	}
	if config.Ingest.DelaySeconds == 0 {
		config.Ingest.DelaySeconds = 1
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 512
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 150
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.History.MaxHistory == 0 {
		config.History.MaxHistory = 5
	}

	if config.Server.Port == "" {
		config.Server.Port = "5000"
	}
	if config.Server.StaticDir == "" {
		config.Server.StaticDir = "frontend"
	}

	if config.Crawler.MaxPages == 0 {
		config.Crawler.MaxPages = 1000
	}
	if config.Crawler.RateLimit == 0 {
		config.Crawler.RateLimit = 2.0
	}
	if config.Crawler.OutputFile == "" {
		config.Crawler.OutputFile = config.Ingest.CrawlFile
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPEN_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if token := os.Getenv("PAGE_ACCESS_TOKEN"); token != "" {
		config.Messenger.PageAccessToken = token
	}
	if token := os.Getenv("VERIFY_TOKEN"); token != "" {
		config.Messenger.VerifyToken = token
	}
	if secret := os.Getenv("APP_SECRET"); secret != "" {
		config.Messenger.AppSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
