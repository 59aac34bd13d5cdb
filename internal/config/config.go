package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/textlayer/pkg/djvu"
	"github.com/lehigh-university-libraries/textlayer/pkg/hocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/source"
)

const (
	FormatDjVu = "djvu"
	FormatHOCR = "hocr"
)

type Config struct {
	// TextSelection turns the text layer on for opened books.
	TextSelection bool `yaml:"text_selection"`

	// OCR source
	OCRURLTemplate string        `yaml:"ocr_url_template"`
	Format         string        `yaml:"format"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`

	// Debug renders the text layer visibly.
	Debug bool `yaml:"debug"`

	// Server
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`
	Host        string        `yaml:"host"`
	Port        string        `yaml:"port"`
}

func Default() Config {
	return Config{
		TextSelection:  true,
		OCRURLTemplate: source.DefaultURLTemplate,
		Format:         FormatDjVu,
		FetchTimeout:   60 * time.Second,
		SessionTTL:     30 * time.Minute,
		MaxSessions:    100,
		Host:           "0.0.0.0",
		Port:           "8080",
	}
}

// Load builds the configuration from defaults, the yaml file at path (when
// path is not empty) and TEXTLAYER_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.TextSelection = envBool("TEXTLAYER_TEXT_SELECTION", cfg.TextSelection)
	cfg.OCRURLTemplate = envOr("TEXTLAYER_OCR_URL_TEMPLATE", cfg.OCRURLTemplate)
	cfg.Format = envOr("TEXTLAYER_FORMAT", cfg.Format)
	cfg.FetchTimeout = envDuration("TEXTLAYER_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.Debug = envBool("TEXTLAYER_DEBUG", cfg.Debug)
	cfg.SessionTTL = envDuration("TEXTLAYER_SESSION_TTL", cfg.SessionTTL)
	cfg.MaxSessions = envInt("TEXTLAYER_MAX_SESSIONS", cfg.MaxSessions)
	cfg.Host = envOr("TEXTLAYER_HOST", cfg.Host)
	cfg.Port = envOr("TEXTLAYER_PORT", cfg.Port)

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 100
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := c.Decoder(); err != nil {
		return err
	}
	if c.OCRURLTemplate == "" {
		return errors.New("ocr_url_template is required")
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

// Decoder returns the OCR document decoder for the configured format.
func (c Config) Decoder() (ocr.DecodeFunc, error) {
	return DecoderFor(c.Format)
}

func DecoderFor(format string) (ocr.DecodeFunc, error) {
	switch format {
	case FormatDjVu, "":
		return djvu.Decode, nil
	case FormatHOCR:
		return hocr.Decode, nil
	}
	return nil, fmt.Errorf("unknown OCR format %q (want %s or %s)", format, FormatDjVu, FormatHOCR)
}

// Addr is the listen address for the server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
