package logger

import (
	"strings"

	"github.com/angelmondragon/sharecart-backend/pkg/config"
)

// FileOptionsFromConfig maps the log section to rotating file options. Nil means stdout only.
func FileOptionsFromConfig(cfg config.LogConfig) *FileOptions {
	if strings.TrimSpace(cfg.File) == "" {
		return nil
	}
	return &FileOptions{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}
