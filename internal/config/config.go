package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Infrastructure
	DBAddr        string
	DBDebug       bool
	DBMigrate     bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string

	RabbitExchange string

	// Account flows
	PublicBaseURL    string // absolute origin used in verification links
	HomeAfterLogin   string // default destination after login / signup
	SessionTTL       time.Duration
	SecureCookies    bool
	BcryptCost       int
	VerifyTokenBytes int
	NotifyTimeout    time.Duration

	// Rate limits for the form POSTs (fail-open when Redis is down)
	RLLoginLimit          int
	RLLoginWindow         time.Duration
	RLCreateAccountLimit  int
	RLCreateAccountWindow time.Duration
	// Peers allowed to set X-Forwarded-For (CIDRs or bare IPs).
	TrustedProxies []netip.Prefix
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

func Load() (*Config, error) {
	// optional .env for local runs; real env wins
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      strings.TrimSpace(os.Getenv("RABBIT_URL")),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "city.events"),
		HomeAfterLogin: getEnv("HOME_AFTER_LOGIN", "/account"),
	}

	var err error

	// Infrastructure dependencies.
	// Outside dev the service cannot operate correctly without its backing
	// services, so fail fast instead of starting half-initialized.
	cfg.DBAddr = strings.TrimSpace(os.Getenv("DB_ADDR"))
	if cfg.DBAddr == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if cfg.DBAddr != "" {
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, err
		}
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBMigrate, err = getBool("DB_MIGRATE", true); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if !cfg.IsDev() {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
		}
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	}

	// Verification links are sent by mail, so they must be absolute.
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:8080")
	if err := validateBaseURL(cfg.PublicBaseURL); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(cfg.HomeAfterLogin, "/") || strings.HasPrefix(cfg.HomeAfterLogin, "//") {
		return nil, fmt.Errorf("HOME_AFTER_LOGIN must be a site-relative path, got %q", cfg.HomeAfterLogin)
	}

	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = getBool("COOKIE_SECURE", !cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be within [4,31], got %d", cfg.BcryptCost)
	}
	if cfg.VerifyTokenBytes, err = getInt("VERIFY_TOKEN_BYTES", 32); err != nil {
		return nil, err
	}
	if cfg.VerifyTokenBytes < 16 {
		return nil, fmt.Errorf("VERIFY_TOKEN_BYTES must be at least 16, got %d", cfg.VerifyTokenBytes)
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}

	if cfg.RLLoginLimit, err = getInt("RL_LOGIN_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RLLoginWindow, err = getDuration("RL_LOGIN_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RLCreateAccountLimit, err = getInt("RL_CREATE_ACCOUNT_LIMIT", 3); err != nil {
		return nil, err
	}
	if cfg.RLCreateAccountWindow, err = getDuration("RL_CREATE_ACCOUNT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	if cfg.TrustedProxies, err = getPrefixes("TRUSTED_PROXIES"); err != nil {
		return nil, err
	}

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use postgres:// or postgresql://, got %q", u.Scheme)
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a database")
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid PUBLIC_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

// getPrefixes parses a comma-separated list of CIDRs; a bare IP is taken as
// a single-host prefix.
func getPrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p, err := netip.ParsePrefix(part); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: want CIDR or IP", key, part)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
