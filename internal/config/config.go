package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 默认订阅源
const defaultFeeds = "https://hackaday.com/tag/cyberdeck/feed/"

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	// 为空时不启用 Basic Auth
	BasicAuthUser string
	BasicAuthPass string

	CronSpec string

	Feeds            []string
	FetchConcurrency int
	FetchTimeout     time.Duration
	Location         *time.Location

	BotIdentity string
	BotUsername string
	BotName     string
	BotSummary  string
}

func Load() *Config {
	// .env 可选，不存在时直接使用进程环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=feedbot password=feedbot dbname=feedbot port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		BasicAuthUser:    os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:    os.Getenv("APP_BASIC_PASS"),
		CronSpec:         getEnv("CRON_SPEC", "0 * * * *"),
		Feeds:            splitList(getEnv("FEEDS", defaultFeeds)),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 1),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		Location:         loadLocation(os.Getenv("BOT_TIMEZONE")),
		BotIdentity:      getEnv("BOT_IDENTITY", "https://hackerspub-cyberdeck-news.deno.dev"),
		BotUsername:      getEnv("BOT_USERNAME", "cyberdeck-news-bot"),
		BotName:          getEnv("BOT_NAME", "Cyberdeck News Bot"),
		BotSummary:       getEnv("BOT_SUMMARY", "Cyberdeck News Bot is a bot gather cyberdeck news and projects from the internet"),
	}

	log.Printf("config loaded: port=%s cron=%s feeds=%d tz=%s identity=%s",
		cfg.AppPort, cfg.CronSpec, len(cfg.Feeds), cfg.Location, cfg.BotIdentity)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, use %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warn: invalid %s=%q, use %s", key, v, def)
		return def
	}
	return d
}

// splitList 按逗号拆分，忽略空项
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadLocation 未配置或无法识别时使用本地时区
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("warn: unknown BOT_TIMEZONE %q, use local: %v", name, err)
		return time.Local
	}
	return loc
}

// Now returns current time, 方便后续做可测试封装
func Now() time.Time {
	return time.Now()
}
