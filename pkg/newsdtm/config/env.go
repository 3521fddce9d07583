package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds runtime settings read from the environment. Command-line flags
// override them.
type Env struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBPath      string `env:"NEWSDTM_DB_PATH"`
	OutputDir   string `env:"NEWSDTM_OUTPUT_DIR" envDefault:"out"`
	MetricsFile string `env:"NEWSDTM_METRICS_FILE"`
	Workers     int    `env:"NEWSDTM_WORKERS" envDefault:"4"`

	S3Bucket    string `env:"NEWSDTM_S3_BUCKET"`
	S3Prefix    string `env:"NEWSDTM_S3_PREFIX"`
	AWSRegion   string `env:"AWS_REGION"`
	S3PathStyle bool   `env:"NEWSDTM_S3_PATH_STYLE" envDefault:"false"`

	AnalyzerURL  string `env:"NEWSDTM_ANALYZER_URL"`
	SentimentURL string `env:"NEWSDTM_SENTIMENT_URL"`
	EmotionURL   string `env:"NEWSDTM_EMOTION_URL"`
	APIKey       string `env:"NEWSDTM_API_KEY"`
}

// LoadEnv reads an optional .env file, then the process environment.
func LoadEnv(files ...string) (*Env, error) {
	_ = godotenv.Load(files...) // a missing .env file is fine

	cfg := &Env{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("parsing environment config: NEWSDTM_WORKERS must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

// IsLocal reports whether the process runs on a developer machine.
func (e *Env) IsLocal() bool {
	return e.AppEnv == "local"
}
