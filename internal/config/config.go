package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr       string
	GRPCAddr      string
	DatabaseDSN   string
	SQLitePath    string
	JWTSecret     string
	TrustedSubnet string
	RedisAddr     string
	LogLevel      string

	// TrustedProxies - сети обратных прокси (CIDR), которым можно доверять X-Forwarded-For и X-Real-IP
	TrustedProxies []string

	GeoLookupURL string
	GeoTimeout   time.Duration
	// GeoRPS ограничивает исходящие запросы геолокации; 0 отключает ограничение
	GeoRPS float64

	RateLimitWindow    time.Duration
	RateLimitAnonymous int
	RateLimitVerified  int

	StatsTopReferrers int
	StatsRecentClicks int
}

// defaultConfig возвращает настройки по умолчанию
func defaultConfig() *Config {
	return &Config{
		RunAddr:            ":8080",
		GRPCAddr:           ":3200",
		SQLitePath:         "data/linkpulse.db",
		LogLevel:           "info",
		GeoLookupURL:       "http://ip-api.com/json",
		GeoTimeout:         5 * time.Second,
		GeoRPS:             0.75,
		RateLimitWindow:    time.Minute,
		RateLimitAnonymous: 20,
		RateLimitVerified:  100,
		StatsTopReferrers:  5,
		StatsRecentClicks:  10,
	}
}

// NewConfig загружает .env (если он есть), парсит флаги командной строки и применяет переменные окружения
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse(os.Args[1:], os.LookupEnv)
}

// Parse строит Config из аргументов и окружения. Окружение имеет приоритет над флагами.
func Parse(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := defaultConfig()

	// Регистрируем флаги
	fs := flag.NewFlagSet("linkpulse", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run HTTP server")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "address and port to run gRPC server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN for PostgreSQL")
	fs.StringVar(&cfg.SQLitePath, "s", cfg.SQLitePath, "path to SQLite database file, used when no DSN is set")
	fs.StringVar(&cfg.JWTSecret, "j", cfg.JWTSecret, "JWT secret key for verified callers")
	fs.StringVar(&cfg.TrustedSubnet, "t", cfg.TrustedSubnet, "trusted subnet in CIDR notation for /metrics")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address for geo lookup cache")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.Func("trusted-proxies", "comma-separated CIDR list of reverse proxies allowed to set X-Forwarded-For", func(v string) error {
		cfg.TrustedProxies = splitList(v)
		return nil
	})
	fs.StringVar(&cfg.GeoLookupURL, "geo-url", cfg.GeoLookupURL, "base URL of geo lookup service")
	fs.DurationVar(&cfg.GeoTimeout, "geo-timeout", cfg.GeoTimeout, "geo lookup timeout")
	fs.Float64Var(&cfg.GeoRPS, "geo-rps", cfg.GeoRPS, "geo lookups per second, 0 disables throttling")
	fs.DurationVar(&cfg.RateLimitWindow, "rate-window", cfg.RateLimitWindow, "admission window length")
	fs.IntVar(&cfg.RateLimitAnonymous, "rate-anonymous", cfg.RateLimitAnonymous, "requests per window for anonymous callers")
	fs.IntVar(&cfg.RateLimitVerified, "rate-verified", cfg.RateLimitVerified, "requests per window for verified callers")
	fs.IntVar(&cfg.StatsTopReferrers, "stats-referrers", cfg.StatsTopReferrers, "referrer domains in stats summary")
	fs.IntVar(&cfg.StatsRecentClicks, "stats-recent", cfg.StatsRecentClicks, "recent clicks in stats summary")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Проверяем переменные окружения
	env := envReader{lookup: lookupEnv}
	env.str("SERVER_ADDRESS", &cfg.RunAddr)
	env.str("GRPC_ADDRESS", &cfg.GRPCAddr)
	env.str("DATABASE_DSN", &cfg.DatabaseDSN)
	env.str("SQLITE_PATH", &cfg.SQLitePath)
	env.str("JWT_SECRET", &cfg.JWTSecret)
	env.str("TRUSTED_SUBNET", &cfg.TrustedSubnet)
	env.str("REDIS_ADDR", &cfg.RedisAddr)
	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.list("TRUSTED_PROXIES", &cfg.TrustedProxies)
	env.str("GEO_LOOKUP_URL", &cfg.GeoLookupURL)
	env.duration("GEO_TIMEOUT", &cfg.GeoTimeout)
	env.float("GEO_RPS", &cfg.GeoRPS)
	env.duration("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow)
	env.integer("RATE_LIMIT_ANONYMOUS", &cfg.RateLimitAnonymous)
	env.integer("RATE_LIMIT_VERIFIED", &cfg.RateLimitVerified)
	env.integer("STATS_TOP_REFERRERS", &cfg.StatsTopReferrers)
	env.integer("STATS_RECENT_CLICKS", &cfg.StatsRecentClicks)
	if env.err != nil {
		return nil, env.err
	}

	// Валидация значений
	cfg.RunAddr = normalizeAddr(cfg.RunAddr)
	cfg.GRPCAddr = normalizeAddr(cfg.GRPCAddr)
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.RateLimitWindow)
	}
	if cfg.RateLimitAnonymous <= 0 || cfg.RateLimitVerified <= 0 {
		return nil, fmt.Errorf("rate limits must be positive, got anonymous=%d verified=%d", cfg.RateLimitAnonymous, cfg.RateLimitVerified)
	}
	if cfg.GeoTimeout <= 0 {
		return nil, fmt.Errorf("geo timeout must be positive, got %s", cfg.GeoTimeout)
	}
	if cfg.GeoRPS < 0 {
		return nil, fmt.Errorf("geo rps must not be negative, got %v", cfg.GeoRPS)
	}
	for _, cidr := range cfg.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
	}

	return cfg, nil
}

// normalizeAddr дописывает двоеточие к голому номеру порта
func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// splitList разбирает список через запятую, отбрасывая пустые элементы
func splitList(v string) []string {
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// envReader применяет непустые переменные окружения и запоминает первую ошибку разбора
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" || e.err != nil {
		return "", false
	}
	return v, true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = d
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.err = fmt.Errorf("invalid %s: %w", key, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.value(key); ok {
		*dst = splitList(v)
	}
}
