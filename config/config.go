// Package config carrega a configuração do soundboard.
//
// Ordem de precedência: valores padrão, depois arquivo TOML (opcional),
// depois variáveis de ambiente SOUNDBOARD_*. O resultado é validado no fim.
package config

import (
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
	"soundboard-gateway/playback"
	"soundboard-gateway/recency"
	"soundboard-gateway/resolver"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Recency   RecencyConfig   `toml:"recency"`
	Media     MediaConfig     `toml:"media"`
	Player    PlayerConfig    `toml:"player"`
	Stats     StatsConfig     `toml:"stats"`
	Redis     RedisConfig     `toml:"redis"`
}

type ServerConfig struct {
	Listen            string   `toml:"listen"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	ReadTimeout       Duration `toml:"read_timeout"`
	WriteTimeout      Duration `toml:"write_timeout"`
	IdleTimeout       Duration `toml:"idle_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
	// ConcurrencyMax limita requisições simultâneas (0 desliga).
	ConcurrencyMax     int      `toml:"concurrency_max"`
	ConcurrencyTimeout Duration `toml:"concurrency_timeout"`
	AccessLog          bool     `toml:"access_log"`
}

type RateLimitConfig struct {
	Enabled     bool     `toml:"enabled"`
	MaxRequests int      `toml:"max_requests"`
	Window      Duration `toml:"window"`
	// SweepEvery liga a varredura periódica de clientes ociosos (0 = só expiração preguiçosa).
	SweepEvery Duration `toml:"sweep_every"`
	// ToggleFile, se definido, é observado e liga/desliga a cota em tempo de execução.
	ToggleFile string `toml:"toggle_file"`
	AddHeaders bool   `toml:"add_headers"`
}

// Policy converte para a política de domínio.
func (c RateLimitConfig) Policy() domain.Policy {
	return domain.Policy{MaxRequests: c.MaxRequests, Window: c.Window.Duration}
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type RecencyConfig struct {
	Capacity int `toml:"capacity"`
	// Backend: memory, file, sqlite ou redis.
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	RedisKey string `toml:"redis_key"`
}

type MediaConfig struct {
	BaseURL      string   `toml:"base_url"`
	FetchTimeout Duration `toml:"fetch_timeout"`
	MaxPageBytes int64    `toml:"max_page_bytes"`
	FetchRPS     float64  `toml:"fetch_rps"`
	FetchBurst   int      `toml:"fetch_burst"`
}

type PlayerConfig struct {
	// Command é o player externo; {file} vira o caminho do áudio baixado.
	Command          []string `toml:"command"`
	DownloadTimeout  Duration `toml:"download_timeout"`
	MaxDownloadBytes int64    `toml:"max_download_bytes"`
	TempDir          string   `toml:"temp_dir"`
}

type StatsConfig struct {
	// Backend: memory ou redis.
	Backend   string   `toml:"backend"`
	Prefix    string   `toml:"prefix"`
	TTL       Duration `toml:"ttl"`
	Bucket    string   `toml:"bucket"`
	TrackKeys bool     `toml:"track_keys"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// UsesRedis diz se algum componente precisa do cliente Redis.
func (c *Config) UsesRedis() bool {
	return c.Recency.Backend == BackendRedis || c.Stats.Backend == BackendRedis
}

// Default devolve a configuração padrão: cota de 5 por 10 minutos, 1000 recentes em arquivo.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:            ":8080",
			ReadHeaderTimeout: Duration{10 * time.Second},
			ReadTimeout:       Duration{30 * time.Second},
			WriteTimeout:      Duration{30 * time.Second},
			IdleTimeout:       Duration{90 * time.Second},
			ShutdownTimeout:   Duration{10 * time.Second},
			ConcurrencyMax:    64,
			AccessLog:         true,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxRequests: domain.DefaultPolicy.MaxRequests,
			Window:      Duration{domain.DefaultPolicy.Window},
		},
		Recency: RecencyConfig{
			Capacity: recency.DefaultCapacity,
			Backend:  BackendFile,
			Path:     "data/recent_sounds.json",
			RedisKey: "soundboard:recent_sounds",
		},
		Media: MediaConfig{
			BaseURL:      resolver.DefaultBaseURL,
			FetchTimeout: Duration{10 * time.Second},
			MaxPageBytes: resolver.DefaultMaxPage,
			FetchRPS:     1,
			FetchBurst:   3,
		},
		Player: PlayerConfig{
			Command:          append([]string(nil), playback.DefaultPlayerCommand...),
			DownloadTimeout:  Duration{30 * time.Second},
			MaxDownloadBytes: playback.DefaultMaxDownload,
		},
		Stats: StatsConfig{
			Backend: BackendMemory,
			Prefix:  "soundboard:stats",
			TTL:     Duration{24 * time.Hour},
			Bucket:  "minute",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

// Duration aceita strings como "10m" no TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
