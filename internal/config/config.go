package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		ListenAddr  string `env:"LISTEN_ADDR,default=:8080"`
		MetricsAddr string `env:"METRICS_ADDR,default=:2112"`
		JWTSecret   string `env:"JWT_SECRET,required"`
		LogLevel    int    `env:"LOG_LEVEL,default=4"`
		DotPath     string `env:"DOT_PATH,default=~/.modgate"`
		DBFile      string `env:"DB_FILE,default=modgate.db"`
		LLM         LLM
		Moderation  Moderation
	}

	LLM struct {
		APIKey  string        `env:"LLM_API_KEY,required"`
		Model   string        `env:"LLM_API_MODEL,default=gpt-4o-mini"`
		BaseURL string        `env:"LLM_API_URL,default=https://api.openai.com/v1"`
		Type    string        `env:"LLM_API_TYPE,default=openai"`
		Timeout time.Duration `env:"LLM_TIMEOUT,default=10s"`
	}

	Moderation struct {
		StrikeThreshold     int           `env:"STRIKE_THRESHOLD,default=3"`
		SuspensionWindow    time.Duration `env:"SUSPENSION_WINDOW,default=168h"`
		ConfidenceThreshold float64       `env:"CONFIDENCE_THRESHOLD,default=0.6"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("MG_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
