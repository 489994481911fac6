package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"suspension-gateway/middleware/ratelimit"
	"suspension-gateway/middleware/ratelimit/application"
	"suspension-gateway/middleware/ratelimit/infra"

	"github.com/charmbracelet/log"
)

const defaultQuota = "60/minute"

var defaultWhitelist = []string{"127.0.0.1", "::1"}

type config struct {
	listenAddr         string
	upstreamURL        string
	configDir          string
	debug              bool
	rateEnabled        bool
	quota              infra.Quota
	rateKeyHeader      string
	trustXFF           bool
	retryAfter         time.Duration
	addHeaders         bool
	concurrencyMax     int
	concurrencyTimeout time.Duration

	suspensionPeriod time.Duration
	maxConnectionAge time.Duration
	whitelist        []string
	origins          []string
	services         []serviceDescriptor

	metricsEnabled bool
	metricsPath    string

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool
}

// Arquivos JSON lidos de CONFIG_DIR.
type rateLimiterFile struct {
	GeneralRL string   `json:"general_rl"`
	Whitelist []string `json:"whitelist"`
}

type miscFile struct {
	DebugMode string `json:"debug_mode"`
}

type originsFile struct {
	Origins []string `json:"origins"`
}

// readConfig lê os arquivos JSON de CONFIG_DIR e depois as variáveis de
// ambiente, que têm precedência. Arquivo ausente ou inválido só gera log;
// valores inválidos nas variáveis abortam o startup.
func readConfig(logger *log.Logger) (config, error) {
	cfg := config{}
	env := &envReader{}
	cfg.configDir = getenvDefault("CONFIG_DIR", "./configs")

	var rl rateLimiterFile
	loadJSONFile(logger, filepath.Join(cfg.configDir, "rate_limiter.json"), &rl)
	var misc miscFile
	loadJSONFile(logger, filepath.Join(cfg.configDir, "misc.json"), &misc)
	var origins originsFile
	loadJSONFile(logger, filepath.Join(cfg.configDir, "origins.json"), &origins)
	services := map[string]string{}
	loadJSONFile(logger, filepath.Join(cfg.configDir, "microservices.json"), &services)

	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	cfg.debug = strings.EqualFold(misc.DebugMode, "true") || strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
	cfg.rateEnabled = env.boolDefault("RATE_ENABLED", true)

	quota := getenvDefault("RATE_QUOTA", rl.GeneralRL)
	if quota == "" {
		quota = defaultQuota
	}
	q, err := infra.ParseQuota(quota)
	if err != nil {
		return config{}, err
	}
	cfg.quota = q

	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = env.boolDefault("TRUST_XFF", false)
	cfg.retryAfter = env.durationDefault("RETRY_AFTER", application.DefaultRetryAfter)
	cfg.addHeaders = env.boolDefault("ADD_RATELIMIT_HEADERS", false)
	cfg.concurrencyMax = env.intDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = env.durationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.suspensionPeriod = env.durationDefault("SUSPENSION_PERIOD", application.DefaultSuspensionPeriod)
	cfg.maxConnectionAge = env.durationDefault("MAX_CONNECTION_AGE", ratelimit.DefaultMaxConnectionAge)

	// nil (chave ausente) usa o padrão; lista vazia desliga a whitelist do arquivo
	cfg.whitelist = rl.Whitelist
	if cfg.whitelist == nil {
		cfg.whitelist = defaultWhitelist
	}
	cfg.whitelist = append(append([]string{}, cfg.whitelist...), splitList(os.Getenv("WHITELIST_IPS"))...)
	cfg.origins = origins.Origins

	cfg.services, err = parseServices(services)
	if err != nil {
		return config{}, err
	}

	cfg.metricsEnabled = env.boolDefault("METRICS_ENABLED", false)
	cfg.metricsPath = getenvDefault("METRICS_PATH", "/metrics")

	cfg.rateStatsEnabled = env.boolDefault("RATE_STATS_ENABLED", false)
	cfg.rateStatsRedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", "")
	cfg.rateStatsRedisPassword = os.Getenv("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = env.intDefault("RATE_STATS_REDIS_DB", 0)
	cfg.rateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "gateway:stats")
	cfg.rateStatsTTL = env.durationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.rateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.rateStatsTrackKeys = env.boolDefault("RATE_STATS_TRACK_KEYS", false)

	if err := env.err(); err != nil {
		return config{}, err
	}
	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.upstreamURL == "" && len(cfg.services) == 0 {
		return config{}, errors.New("UPSTREAM_URL or at least one entry in microservices.json is required")
	}
	if cfg.suspensionPeriod <= 0 {
		return config{}, errors.New("SUSPENSION_PERIOD must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if !strings.HasPrefix(cfg.metricsPath, "/") {
		return config{}, fmt.Errorf("METRICS_PATH must start with '/', got %q", cfg.metricsPath)
	}
	return cfg, nil
}

func loadJSONFile(logger *log.Logger, path string, v any) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("config file not found, using defaults", "path", path)
		return
	}
	if err != nil {
		logger.Error("error loading config file", "path", path, "err", err)
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.Error("error parsing config file", "path", path, "err", err)
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envReader lê variáveis tipadas. Valor malformado não vira padrão em
// silêncio: fica registrado e readConfig aborta o startup.
type envReader struct {
	errs []error
}

func (e *envReader) invalid(k, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s=%q: %w", k, v, err))
}

func (e *envReader) err() error { return errors.Join(e.errs...) }

func (e *envReader) intDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.invalid(k, v, err)
		return def
	}
	return i
}

func (e *envReader) boolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		e.invalid(k, v, err)
		return def
	}
	return b
}

func (e *envReader) durationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.invalid(k, v, err)
		return def
	}
	return d
}
