package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración de los comandos.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GroqAPIKey    string `env:"GROQ_API_KEY"`
	GroqBaseURL   string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LocalBaseURL  string `env:"LOCAL_LLM_BASE_URL" envDefault:"http://localhost:11434/v1"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	MockResponse  string `env:"MOCK_LLM_RESPONSE"`

	LLMTimeoutSeconds int `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`
	LLMMaxRetries     int `env:"LLM_MAX_RETRIES" envDefault:"2"`
	LLMRetryDelayMS   int `env:"LLM_RETRY_DELAY_MS" envDefault:"500"`

	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RateLimitMax           int `env:"RATE_LIMIT_MAX" envDefault:"0"`

	Workers           int     `env:"WORKERS" envDefault:"4"`
	MaxFailureRatio   float64 `env:"MAX_FAILURE_RATIO" envDefault:"0.5"`
	MinTrialsForAbort int     `env:"MIN_TRIALS_FOR_ABORT" envDefault:"10"`
	AbortOnThreshold  bool    `env:"ABORT_ON_THRESHOLD" envDefault:"true"`
	LowMax            float64 `env:"THRESHOLD_LOW_MAX" envDefault:"2.33"`
	MediumMax         float64 `env:"THRESHOLD_MEDIUM_MAX" envDefault:"3.67"`

	SimilarityMetric string `env:"SIMILARITY_METRIC" envDefault:"cosine"`
	RemoveStopWords  bool   `env:"SIMILARITY_REMOVE_STOP_WORDS" envDefault:"false"`
	ResultsDir       string `env:"RESULTS_DIR" envDefault:"results"`

	JWTSecret        string `env:"JWT_SECRET"`
	JWTReaderTTLDays int    `env:"JWT_READER_TTL_DAYS" envDefault:"30"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"persona-probe"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	NotifyEmail  string `env:"NOTIFY_EMAIL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa rangos que env no puede expresar.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1, got %d", c.Workers)
	}
	if c.MaxFailureRatio < 0 || c.MaxFailureRatio > 1 {
		return fmt.Errorf("MAX_FAILURE_RATIO must be within [0,1], got %.2f", c.MaxFailureRatio)
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must be >= 0, got %d", c.LLMMaxRetries)
	}
	if c.LowMax >= c.MediumMax {
		return fmt.Errorf("THRESHOLD_LOW_MAX (%.2f) must be below THRESHOLD_MEDIUM_MAX (%.2f)", c.LowMax, c.MediumMax)
	}
	return nil
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) LLMRetryDelay() time.Duration {
	return time.Duration(c.LLMRetryDelayMS) * time.Millisecond
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) JWTReaderTTL() time.Duration {
	return time.Duration(c.JWTReaderTTLDays) * 24 * time.Hour
}
