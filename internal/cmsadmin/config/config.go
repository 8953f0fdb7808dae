// Конфигурация сервиса из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации по тегам env полей структуры.
//   - Преобразование типов (string, int, bool) с нижней границей для чисел.
//   - Значения по умолчанию в тегах default: адрес API djofo, сроки хранения, число повторов запросов.
//   - Маскировка секретных значений (token, secret, pass) в логах.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	APIURLRaw string `env:"DJOFO_API_URL" default:"https://api.djofo.bj/api"`
	APIURL    *url.URL

	// Токен сервисной учетной записи, используется пока никто не вошел через /api/login/
	APIToken    string `env:"DJOFO_API_TOKEN"`
	APIRetryMax int    `env:"API_RETRY_MAX" default:"5" min:"0"`

	ListenAddr  string `env:"LISTEN_ADDR" default:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" default:":2112"`

	DatabasePath   string `env:"DATABASE_PATH" default:"cmsadmin.db"`
	FrontFilesPath string `env:"FRONT_PATH"`

	EditorSessionTTLMinutes int `env:"EDITOR_SESSION_TTL" default:"60" min:"1"`
	DraftsRetentionDays     int `env:"DRAFTS_RETENTION_DAYS" default:"30" min:"1"`

	MinifyContent bool `env:"MINIFY_CONTENT"`
}

// ReadConfig загружает конфигурацию из окружения
func ReadConfig() (*Config, error) {
	config := &Config{}
	envConfig(config)

	u, err := url.Parse(strings.TrimSuffix(config.APIURLRaw, "/"))
	if err != nil {
		return nil, fmt.Errorf("DJOFO_API_URL incorrect: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("DJOFO_API_URL must be absolute")
	}
	config.APIURL = u

	return config, nil
}

func (c *Config) EditorSessionTTL() time.Duration {
	return time.Duration(c.EditorSessionTTLMinutes) * time.Minute
}

func (c *Config) DraftsRetention() time.Duration {
	return time.Duration(c.DraftsRetentionDays) * 24 * time.Hour
}
