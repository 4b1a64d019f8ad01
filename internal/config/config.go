package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/reqanalyzer/internal/domain/rag"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
		Prefix     string `yaml:"prefix"` // reference-document key prefix
	} `yaml:"minio"`

	LLM struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	RAG struct {
		BaseURL   string              `yaml:"baseURL"`
		APIKey    string              `yaml:"apiKey"`
		Workspace string              `yaml:"workspace"`
		Params    rag.WorkspaceParams `yaml:"params"`
	} `yaml:"rag"`

	Analysis struct {
		CacheCapacity          int `yaml:"cacheCapacity"`
		GenerateTimeoutSeconds int `yaml:"generateTimeoutSeconds"`
		FallbackCeilingSeconds int `yaml:"fallbackCeilingSeconds"`
	} `yaml:"analysis"`

	// APIKeys maps tenant id -> key; empty disables auth (dev mode)
	APIKeys map[string]string `yaml:"apiKeys"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Analysis.CacheCapacity <= 0 {
		c.Analysis.CacheCapacity = 256
	}
	if c.Analysis.GenerateTimeoutSeconds <= 0 {
		c.Analysis.GenerateTimeoutSeconds = 60
	}
	if c.Analysis.FallbackCeilingSeconds <= 0 {
		c.Analysis.FallbackCeilingSeconds = 240
	}
	if c.RAG.Params.Temperature == 0 {
		c.RAG.Params.Temperature = 0.2
	}
	if c.RAG.Params.TopN <= 0 {
		c.RAG.Params.TopN = 4
	}
	if c.RAG.Params.SimilarityThreshold == 0 {
		c.RAG.Params.SimilarityThreshold = 0.25
	}
	if c.RAG.Params.HistoryWindow <= 0 {
		c.RAG.Params.HistoryWindow = 20
	}
}

// GenerateTimeout returns the primary-path generation deadline.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Analysis.GenerateTimeoutSeconds) * time.Second
}

// FallbackCeiling returns the hard bound for the slow direct path.
func (c *Config) FallbackCeiling() time.Duration {
	return time.Duration(c.Analysis.FallbackCeilingSeconds) * time.Second
}

// MySQLDSN helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN helper for lib/pq
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
