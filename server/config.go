package server

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Tuning 运行期可热调的参数，也可通过 yaml 文件在启动时覆盖
type Tuning struct {
	BroadcastGapMs int `yaml:"broadcast_gap_ms" json:"broadcastGapMs"`
	RoundSeconds   int `yaml:"round_seconds" json:"roundSeconds"`
	SpawnAttempts  int `yaml:"spawn_attempts" json:"spawnAttempts"`
}

// Config 进程启动配置。来源优先级：环境变量（含 .env） > yaml > 默认值
type Config struct {
	Port     string
	LogFile  string
	LogLevel string
	Tuning   Tuning
}

// DefaultTuning 各热调参数的出厂值
func DefaultTuning() Tuning {
	return Tuning{
		BroadcastGapMs: int(defaultBroadcastGap.Milliseconds()),
		RoundSeconds:   DefaultRoundSeconds,
		SpawnAttempts:  DefaultSpawnAttempts,
	}
}

// LoadConfig 读取 .env / 环境变量 / 可选的 CONFIG_FILE yaml，组装启动配置。
// 此时日志尚未初始化，告警走标准库 log
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := Config{
		Port:     getEnv("PORT", "5000"),
		LogFile:  getEnv("LOG_FILE", "app.log"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		Tuning:   DefaultTuning(),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg.Tuning); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Tuning.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (t Tuning) validate() error {
	if t.BroadcastGapMs <= 0 {
		return fmt.Errorf("broadcast_gap_ms must be positive, got %d", t.BroadcastGapMs)
	}
	if t.RoundSeconds <= 0 {
		return fmt.Errorf("round_seconds must be positive, got %d", t.RoundSeconds)
	}
	if t.SpawnAttempts <= 0 {
		return fmt.Errorf("spawn_attempts must be positive, got %d", t.SpawnAttempts)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
