package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/iwvelando/steel-estimate/internal/config"
	"github.com/iwvelando/steel-estimate/pkg/constants"
)

const defaultRequestTimeout = 30 * time.Second

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address       string `yaml:"address"`
	MaxUploadSize string `yaml:"maxUploadSize"`
	// RequestTimeout is a Go duration string such as "30s".
	RequestTimeout string `yaml:"requestTimeout"`
	// EstimateConfig is the pricing configuration served by the API. The
	// built-in defaults are used when it is empty.
	EstimateConfig string               `yaml:"estimateConfig"`
	Logging        config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
	requestTimeout  time.Duration
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:         constants.DefaultServerAddress,
		MaxUploadSize:   fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
		requestTimeout:  defaultRequestTimeout,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured request body limit in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured request body limit.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = fmt.Sprintf("%d", size)
	}
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.requestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return c.requestTimeout
}

// LoadEstimateConfig loads the pricing configuration the API serves.
func (c *Config) LoadEstimateConfig() (*config.Configuration, error) {
	if strings.TrimSpace(c.EstimateConfig) == "" {
		return config.Default(), nil
	}
	return config.LoadConfiguration(c.EstimateConfig)
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	c.requestTimeout = defaultRequestTimeout
	if timeout := strings.TrimSpace(c.RequestTimeout); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid request timeout %q: %w", c.RequestTimeout, err)
		}
		if parsed > 0 {
			c.requestTimeout = parsed
		}
	}

	sizeStr := strings.TrimSpace(c.MaxUploadSize)
	if sizeStr == "" {
		c.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
		c.MaxUploadSize = fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes)
		return nil
	}

	size, err := ParseSize(sizeStr)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
