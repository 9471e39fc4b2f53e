// Package config 负责运行期只读配置：TOML 一次解析，运行期不变。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"subtrans/pkg/contract"
)

// Config 为顶层配置。
type Config struct {
	Model    Model    `toml:"model"`
	Pipeline Pipeline `toml:"pipeline"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// Model: 后端与推理守护进程相关配置。
type Model struct {
	// Tier: 主模型档位（standard|large）。影响模型变体与磁盘/显存阈值。
	Tier string `toml:"tier"`
	// Device: 执行设备（auto|cuda|cpu）。auto 时按可用性与显存估算选定。
	Device string `toml:"device"`
	// ServerURL: 本地推理守护进程地址。
	ServerURL string `toml:"server_url"`
	// CacheDir: 模型权重缓存目录（与推理守护进程共享，用于磁盘预检与下载锁）。
	CacheDir string `toml:"cache_dir"`
	// MaxLength: 生成译文的最大长度（token）。
	MaxLength int `toml:"max_length"`
	// TimeoutSeconds: 单次推理请求的 HTTP 客户端超时；0 表示不限（长推理阻塞直至完成）。
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Pipeline: 批处理与切片配置。
type Pipeline struct {
	// BatchSize: 字幕/分段单元的提交批大小。
	BatchSize int `toml:"batch_size"`
	// TextBatchSize: 纯文本片段的批大小（片段更大，批更小）。
	TextBatchSize int `toml:"text_batch_size"`
	// ChunkSize: 纯文本切片上限（字符）。
	ChunkSize int `toml:"chunk_size"`
	// Validate: 是否对输出执行回译质量检查（仅诊断，不阻断交付）。
	Validate bool `toml:"validate"`
}

// Cache: 译文缓存（SQLite）。
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging: 日志等级与可选落盘路径。
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

const (
	defaultServerURL = "http://127.0.0.1:8093"
	defaultCacheDir  = "~/.cache/subtrans/models"
	defaultMaxLength = 200
	defaultBatchSize = 5
	defaultTextBatch = 3
	defaultChunkSize = 500
	defaultCachePath = ".translation_cache"
	defaultLogLevel  = "info"
)

// Default 返回仓库缺省配置。
func Default() Config {
	return Config{
		Model: Model{
			Tier:      string(contract.TierStandard),
			Device:    "auto",
			ServerURL: defaultServerURL,
			CacheDir:  defaultCacheDir,
			MaxLength: defaultMaxLength,
		},
		Pipeline: Pipeline{
			BatchSize:     defaultBatchSize,
			TextBatchSize: defaultTextBatch,
			ChunkSize:     defaultChunkSize,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}

// Load 读取 TOML 配置文件并叠加在缺省值之上。
// path 为空时返回缺省配置；未知键在解析期失败。
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config read: %w", err)
	}
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config parse %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize 展开 ~ 路径并填补空字段为缺省值。
func Normalize(cfg *Config) error {
	if cfg.Model.Tier == "" {
		cfg.Model.Tier = string(contract.TierStandard)
	}
	if cfg.Model.Device == "" {
		cfg.Model.Device = "auto"
	}
	if cfg.Model.ServerURL == "" {
		cfg.Model.ServerURL = defaultServerURL
	}
	if cfg.Model.CacheDir == "" {
		cfg.Model.CacheDir = defaultCacheDir
	}
	if cfg.Model.MaxLength <= 0 {
		cfg.Model.MaxLength = defaultMaxLength
	}
	if cfg.Pipeline.BatchSize <= 0 {
		cfg.Pipeline.BatchSize = defaultBatchSize
	}
	if cfg.Pipeline.TextBatchSize <= 0 {
		cfg.Pipeline.TextBatchSize = defaultTextBatch
	}
	if cfg.Pipeline.ChunkSize <= 0 {
		cfg.Pipeline.ChunkSize = defaultChunkSize
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = defaultCachePath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	dir, err := expandHome(cfg.Model.CacheDir)
	if err != nil {
		return err
	}
	cfg.Model.CacheDir = dir
	return nil
}

// Validate 校验取值范围（不触达文件系统）。
func Validate(cfg Config) error {
	switch contract.Tier(cfg.Model.Tier) {
	case contract.TierStandard, contract.TierLarge:
	default:
		return fmt.Errorf("config: unknown model tier %q", cfg.Model.Tier)
	}
	switch cfg.Model.Device {
	case "auto", string(contract.DeviceCUDA), string(contract.DeviceCPU):
	default:
		return fmt.Errorf("config: unknown device %q", cfg.Model.Device)
	}
	if !strings.HasPrefix(cfg.Model.ServerURL, "http://") && !strings.HasPrefix(cfg.Model.ServerURL, "https://") {
		return fmt.Errorf("config: server_url must be http(s): %q", cfg.Model.ServerURL)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", cfg.Logging.Level)
	}
	return nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: expand %q: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
