// Package logging は設定から構造化ロガーを構築します。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/GTD-web/ems-backend-sub024/internal/platform/config"
)

// New は level と format に従った *slog.Logger を返します。
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}
}

// ParseLevel は debug/info/warn/error を slog.Level に変換します。
func ParseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging: invalid level %q: %w", raw, err)
	}
	return level, nil
}
