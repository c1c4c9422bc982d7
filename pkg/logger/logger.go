package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config logger 設定
type Config struct {
	// Level debug / info / warn / error，空字串時 development 為 debug，否則 info
	Level string `yaml:"level"`
	// Development 開啟後使用 console 格式並輸出 stacktrace
	Development bool `yaml:"development"`
}

// New 依設定建立 zap logger
//
// 參數:
//
//	cfg: Config - logger 設定
//
// 回傳值:
//
//	*zap.Logger: logger
//	zap.AtomicLevel: 可在執行期間調整的 level
//	error: level 無法解析時回傳錯誤
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := resolveLevel(cfg)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.DisableStacktrace = true
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = level
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	built, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to build logger: %w", err)
	}
	return built, level, nil
}

func resolveLevel(cfg Config) (zap.AtomicLevel, error) {
	if strings.TrimSpace(cfg.Level) == "" {
		if cfg.Development {
			return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
		}
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(cfg.Level); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return zap.NewAtomicLevelAt(parsed), nil
}
