package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxUploadMB  int64
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Stream    string
	Group     string
	Consumer  string
	ResultTTL time.Duration
}

// StorageConfig points at the MinIO/S3 bucket used to stage async uploads
// and, when gate.source is "objectstore", to read store records.
type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	BucketStaging    string
	BucketRecords    string
	UseSSL           bool
	Region           string
	StagingRetention time.Duration
}

type ImgurConfig struct {
	ClientID string
	Endpoint string
}

type CloudinaryConfig struct {
	UploadPreset string
	CloudName    string
	Endpoint     string
}

type BunnyConfig struct {
	AccessKey       string
	StorageZoneName string
	Region          string
	PullZone        string
	StoreLabel      string
	StorageHost     string
}

// BackendsConfig carries the default credentials handed to the ingestion
// pipeline when a request does not supply its own.
type BackendsConfig struct {
	Default    string
	Timeout    time.Duration
	Imgur      ImgurConfig
	Cloudinary CloudinaryConfig
	Bunny      BunnyConfig
}

type TranscodeConfig struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
	MaxSizeKB int
	// MaxPixels caps width*height of a source image before it is decoded.
	MaxPixels int
}

type GateConfig struct {
	Source   string
	BaseURL  string
	Timezone string
	Timeout  time.Duration
}

type QueueConfig struct {
	ClaimInterval   time.Duration
	// CleanupSchedule is a six-field cron spec (with seconds).
	CleanupSchedule string
	// MaxDeliveries is how many times a message is handed out before it is
	// recorded as failed and acked. Zero retries forever.
	MaxDeliveries   int
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Backends         BackendsConfig
	Transcode        TranscodeConfig
	Gate             GateConfig
	Queues           QueueConfig
	Logging          LoggingConfig
	AllowCORSOrigins []string
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func Load() (*AppConfig, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SWIFTSTORE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
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

// unsetKeys have no default but must still be known to viper: Unmarshal
// only consults the environment for keys it has seen.
var unsetKeys = []string{
	"allowcorsorigins",
	"postgres.dsn",
	"redis.password",
	"storage.endpoint",
	"storage.accesskey",
	"storage.secretkey",
	"backends.imgur.clientid",
	"backends.cloudinary.uploadpreset",
	"backends.cloudinary.cloudname",
	"backends.bunny.accesskey",
	"backends.bunny.storagezonename",
	"backends.bunny.region",
	"backends.bunny.pullzone",
	"backends.bunny.storelabel",
	"gate.baseurl",
	"gate.timezone",
}

func setDefaults(v *viper.Viper) {
	for _, key := range unsetKeys {
		v.SetDefault(key, "")
	}

	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "90s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxuploadmb", 20)

	v.SetDefault("postgres.maxopen", 10)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "assets:ingest")
	v.SetDefault("redis.group", "asset-workers")
	v.SetDefault("redis.consumer", "worker-1")
	v.SetDefault("redis.resultttl", "24h")

	v.SetDefault("storage.bucketstaging", "swiftstore-staging")
	v.SetDefault("storage.bucketrecords", "swiftstore-records")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.stagingretention", "6h")

	v.SetDefault("backends.default", "bunny")
	v.SetDefault("backends.timeout", "60s")
	v.SetDefault("backends.imgur.endpoint", "https://api.imgur.com/3/image")
	v.SetDefault("backends.cloudinary.endpoint", "https://api.cloudinary.com/v1_1")
	v.SetDefault("backends.bunny.storagehost", "storage.bunnycdn.com")

	v.SetDefault("transcode.maxwidth", 800)
	v.SetDefault("transcode.maxheight", 600)
	v.SetDefault("transcode.quality", 0.7)
	v.SetDefault("transcode.maxsizekb", 200)
	v.SetDefault("transcode.maxpixels", 40_000_000)

	v.SetDefault("gate.source", "http")
	v.SetDefault("gate.timeout", "15s")

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.cleanupschedule", "0 0 * * * *")
	v.SetDefault("queues.maxdeliveries", 5)

	v.SetDefault("logging.level", "info")
}
