package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port     int    `yaml:"port"`
		AdminKey string `yaml:"adminKey"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	// Legacy adalah Postgres lama, sebagian artwork masih tersimpan di sana.
	// Kalau disabled, persister hanya menulis ke tabel utama.
	Legacy struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"legacy"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	Pipeline struct {
		UploadConcurrency  int           `yaml:"uploadConcurrency"`
		AnalyzeConcurrency int           `yaml:"analyzeConcurrency"`
		CallTimeout        time.Duration `yaml:"callTimeout"`
		SearchCacheTTL     time.Duration `yaml:"searchCacheTTL"`
		MaxUploadBytes     int64         `yaml:"maxUploadBytes"`
	} `yaml:"pipeline"`
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

	// secrets boleh dioverride lewat env
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	// upload cap lebih besar dari analysis cap: vision API lebih mahal
	if c.Pipeline.UploadConcurrency <= 0 {
		c.Pipeline.UploadConcurrency = 5
	}
	if c.Pipeline.AnalyzeConcurrency <= 0 {
		c.Pipeline.AnalyzeConcurrency = 3
	}
	if c.Pipeline.CallTimeout <= 0 {
		c.Pipeline.CallTimeout = 45 * time.Second
	}
	if c.Pipeline.SearchCacheTTL <= 0 {
		c.Pipeline.SearchCacheTTL = 5 * time.Minute
	}
	if c.Pipeline.MaxUploadBytes <= 0 {
		c.Pipeline.MaxUploadBytes = 64 << 20
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN untuk store legacy
func (c *Config) PostgresDSN() string {
	ssl := c.Legacy.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Legacy.Host,
		c.Legacy.Port,
		c.Legacy.User,
		c.Legacy.Password,
		c.Legacy.Name,
		ssl,
	)
}
