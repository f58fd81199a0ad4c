package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	BucketMedia  string
	BucketCovers string
	UseSSL       bool
	Region       string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	SignatureSecret string
	MaxSessions     int
}

type EventsConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ChannelPrefix string
	ClaimInterval time.Duration
}

type UploadConfig struct {
	MaxSizeBytes int64
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Events           EventsConfig
	Upload           UploadConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LEGACYVAULT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketmedia", "legacyvault-media")
	v.SetDefault("storage.bucketcovers", "legacyvault-covers")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("events.stream", "vault:events")
	v.SetDefault("events.group", "vault-workers")
	v.SetDefault("events.consumer", "worker-1")
	v.SetDefault("events.channelprefix", "vault:updates:")
	v.SetDefault("events.claiminterval", "30s")

	v.SetDefault("upload.maxsizebytes", 104857600) // 100 MiB
}
