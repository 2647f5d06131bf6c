package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	JWT        JWTConfig        `yaml:"jwt"`
	Quota      QuotaConfig      `yaml:"quota"`
	Thumbnail  ThumbnailConfig  `yaml:"thumbnail"`
	Pagination PaginationConfig `yaml:"pagination"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	Charset      string `yaml:"charset"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	SessionExpire int    `yaml:"session_expire"`
}

// StorageConfig locates the physical storage areas. Each space has its own
// root; chunked uploads are staged under ChunkTempRoot until merged.
type StorageConfig struct {
	PublicRoot        string   `yaml:"public_root"`
	GroupRoot         string   `yaml:"group_root"`
	UserRoot          string   `yaml:"user_root"`
	ChunkTempRoot     string   `yaml:"chunk_temp_root"`
	ThumbnailRoot     string   `yaml:"thumbnail_root"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	ChunkSize         int64    `yaml:"chunk_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	SessionTTLHours   int      `yaml:"session_ttl_hours"`
	CleanupInterval   int      `yaml:"cleanup_interval"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type QuotaConfig struct {
	DefaultUserQuota int64 `yaml:"default_user_quota"`
}

type ThumbnailConfig struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Quality int `yaml:"quality"`
}

type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.ChunkSize <= 0 {
		cfg.Storage.ChunkSize = 5 * 1024 * 1024
	}
	if cfg.Storage.MaxFileSize <= 0 {
		cfg.Storage.MaxFileSize = 1 << 30
	}
	if cfg.Storage.SessionTTLHours <= 0 {
		cfg.Storage.SessionTTLHours = 24
	}
	if cfg.Storage.ThumbnailRoot == "" && cfg.Storage.UserRoot != "" {
		cfg.Storage.ThumbnailRoot = filepath.Join(filepath.Dir(cfg.Storage.UserRoot), "thumbnails")
	}
	if cfg.Quota.DefaultUserQuota <= 0 {
		cfg.Quota.DefaultUserQuota = 100 * 1024 * 1024 * 1024
	}
	if cfg.JWT.ExpireHours <= 0 {
		cfg.JWT.ExpireHours = 24
	}
	if cfg.Thumbnail.Width <= 0 {
		cfg.Thumbnail.Width = 200
	}
	if cfg.Thumbnail.Height <= 0 {
		cfg.Thumbnail.Height = 200
	}
	if cfg.Thumbnail.Quality <= 0 {
		cfg.Thumbnail.Quality = 80
	}
	if cfg.Pagination.DefaultPageSize <= 0 {
		cfg.Pagination.DefaultPageSize = 20
	}
	if cfg.Pagination.MaxPageSize <= 0 {
		cfg.Pagination.MaxPageSize = 100
	}
}

// SpaceRoot returns the storage root for a space. User-space files live in a
// per-user directory below UserRoot.
func (s *StorageConfig) SpaceRoot(space string, userID uint) string {
	switch space {
	case "public":
		return s.PublicRoot
	case "group":
		return s.GroupRoot
	default:
		return filepath.Join(s.UserRoot, fmt.Sprintf("%d", userID))
	}
}
