package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load monta a configuração. Com path vazio procura ./soundboard.toml e
// $XDG_CONFIG_HOME/soundboard/config.toml; nenhum arquivo encontrado não é erro.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		for _, k := range md.Undecoded() {
			log.Printf("CONFIG: unknown key %q in %s", k.String(), path)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	paths := []string{"soundboard.toml"}

	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		if home, err := os.UserHomeDir(); err == nil {
			xdg = filepath.Join(home, ".config")
		}
	}
	if xdg != "" {
		paths = append(paths, filepath.Join(xdg, "soundboard", "config.toml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

const envPrefix = "SOUNDBOARD_"

func applyEnvOverrides(cfg *Config) {
	s := &cfg.Server
	s.Listen = getenvDefault("LISTEN", s.Listen)
	s.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", s.ConcurrencyMax)
	s.ConcurrencyTimeout.Duration = getenvDurationDefault("CONCURRENCY_TIMEOUT", s.ConcurrencyTimeout.Duration)
	s.AccessLog = getenvBoolDefault("ACCESS_LOG", s.AccessLog)

	r := &cfg.RateLimit
	r.Enabled = getenvBoolDefault("RATE_ENABLED", r.Enabled)
	r.MaxRequests = getenvIntDefault("RATE_MAX_REQUESTS", r.MaxRequests)
	r.Window.Duration = getenvDurationDefault("RATE_WINDOW", r.Window.Duration)
	r.SweepEvery.Duration = getenvDurationDefault("RATE_SWEEP_EVERY", r.SweepEvery.Duration)
	r.ToggleFile = getenvDefault("RATE_TOGGLE_FILE", r.ToggleFile)
	r.AddHeaders = getenvBoolDefault("RATE_ADD_HEADERS", r.AddHeaders)

	rc := &cfg.Recency
	rc.Capacity = getenvIntDefault("RECENT_CAPACITY", rc.Capacity)
	rc.Backend = strings.ToLower(getenvDefault("RECENT_BACKEND", rc.Backend))
	rc.Path = getenvDefault("RECENT_PATH", rc.Path)
	rc.RedisKey = getenvDefault("RECENT_REDIS_KEY", rc.RedisKey)

	m := &cfg.Media
	m.BaseURL = getenvDefault("MEDIA_BASE_URL", m.BaseURL)
	m.FetchTimeout.Duration = getenvDurationDefault("FETCH_TIMEOUT", m.FetchTimeout.Duration)
	m.FetchRPS = getenvFloatDefault("FETCH_RPS", m.FetchRPS)
	m.FetchBurst = getenvIntDefault("FETCH_BURST", m.FetchBurst)

	p := &cfg.Player
	if v := getenvDefault("PLAYER_COMMAND", ""); v != "" {
		p.Command = strings.Fields(v)
	}
	p.TempDir = getenvDefault("PLAYER_TEMP_DIR", p.TempDir)

	st := &cfg.Stats
	st.Backend = strings.ToLower(getenvDefault("STATS_BACKEND", st.Backend))
	st.Prefix = getenvDefault("STATS_PREFIX", st.Prefix)
	st.TTL.Duration = getenvDurationDefault("STATS_TTL", st.TTL.Duration)
	st.Bucket = getenvDefault("STATS_BUCKET", st.Bucket)
	st.TrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", st.TrackKeys)

	rd := &cfg.Redis
	rd.Addr = getenvDefault("REDIS_ADDR", rd.Addr)
	rd.Password = getenvDefault("REDIS_PASSWORD", rd.Password)
	rd.DB = getenvIntDefault("REDIS_DB", rd.DB)
}

// Helpers de ambiente: valor ausente ou inválido mantém o padrão.

func getenvDefault(k, def string) string {
	if v := os.Getenv(envPrefix + k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
