package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	defaultAPIKeyHeader   = "x-api-key"
	defaultMaxUploadBytes = 20 * 1024 * 1024
	defaultPort           = 8080

	envFileStorePrefix = "FILE_STORE_"
)

type Config struct {
	Port             int              `json:"port"`
	APIKey           string           `json:"api_key"`
	APIKeyHeader     string           `json:"api_key_header"`
	MaxUploadBytes   int64            `json:"max_upload_bytes"`
	CORSAllowOrigins []string         `json:"cors_allow_origins"`
	LogConfig        logger.LogConfig `json:"log_config"`
	FileStore        FileStoreConfig  `json:"file_store"`
}

// FileStoreConfig selects one backend. Data is decoded by the backend factory.
type FileStoreConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Load reads the optional JSON file at path, overlays environment variables
// (including those from envFile when it exists) and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := applyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, environ []string) error {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "UPLOAD_API_KEY":
			cfg.APIKey = value
		case "API_KEY_HEADER":
			cfg.APIKeyHeader = value
		case "PORT":
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid PORT %q: %w", value, err)
			}
			cfg.Port = port
		case "MAX_UPLOAD_BYTES":
			size, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", value, err)
			}
			cfg.MaxUploadBytes = size
		case "CORS_ALLOW_ORIGINS":
			cfg.CORSAllowOrigins = strings.Split(value, ",")
		case "LOG_LEVEL":
			cfg.LogConfig.Level = value
		case "FILE_STORE_TYPE":
			cfg.FileStore.Type = value
		default:
			if !strings.HasPrefix(key, envFileStorePrefix) {
				continue
			}
			if cfg.FileStore.Data == nil {
				cfg.FileStore.Data = map[string]interface{}{}
			}
			name := strings.ToLower(strings.TrimPrefix(key, envFileStorePrefix))
			coerced, err := coerceEnvValue(name, value)
			if err != nil {
				return err
			}
			cfg.FileStore.Data[name] = coerced
		}
	}
	return nil
}

// typedStoreKeys lists the store settings that are not strings. Every other
// FILE_STORE_<KEY> value is kept verbatim, so numeric buckets and keys survive.
var typedStoreKeys = map[string]string{
	"use_ssl":           "bool",
	"use_path_style":    "bool",
	"rate_limit_status": "int",
}

// coerceEnvValue turns an env string into the JSON type the store config expects.
func coerceEnvValue(key, value string) (interface{}, error) {
	switch typedStoreKeys[key] {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s%s %q: %w", envFileStorePrefix, strings.ToUpper(key), value, err)
		}
		return b, nil
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s%s %q: %w", envFileStorePrefix, strings.ToUpper(key), value, err)
		}
		return n, nil
	}
	return value, nil
}

func (c *Config) finalize() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = defaultAPIKeyHeader
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.FileStore.Type == "" {
		c.FileStore.Type = "local"
	}
	c.FileStore.Type = strings.ToLower(strings.TrimSpace(c.FileStore.Type))
	switch c.FileStore.Type {
	case "local":
		if dataString(c.FileStore.Data, "dir") == "" {
			return fmt.Errorf("file_store.data.dir is required for local store")
		}
	case "s3", "minio":
		for _, key := range []string{"endpoint", "bucket", "access_key", "secret_key"} {
			if dataString(c.FileStore.Data, key) == "" {
				return fmt.Errorf("file_store.data.%s is required for %s store", key, c.FileStore.Type)
			}
		}
	default:
		return fmt.Errorf("file_store.type must be local, s3 or minio")
	}
	return nil
}

func dataString(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	v, ok := data[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
