package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env      Env
	Storage  StorageConfig
	Minio    MinioConfig
	S3       S3Config
	Upload   FileUploadConfig
	NATS     NATSConfig
	Database DatabaseConfig
	Server   ServerConfig
	Redis    RedisConfig
	Outbox   OutboxConfig
	Reaper   ReaperConfig
	Download DownloadConfig
	Webhook  WebhookConfig
}

type Env struct {
	Env string `envconfig:"ENV" default:"DEV"`
}

type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"localhost"`
	Port string `envconfig:"SERVER_PORT" default:"8080"`
}

// StorageConfig selects the object storage backend: "minio" or "s3"
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"minio"`
}

type MinioConfig struct {
	Endpoint                   string        `envconfig:"MINIO_ENDPOINT"`
	BucketName                 string        `envconfig:"MINIO_BUCKET_NAME" default:"transfers"`
	AccessKey                  string        `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey                  string        `envconfig:"MINIO_SECRET_KEY"`
	SimplePresignedDuration    time.Duration `envconfig:"MINIO_SIMPLE_PRESIGNED_DURATION" default:"15m"`
	MultiPartPresignedDuration time.Duration `envconfig:"MINIO_MULTIPART_PRESIGNED_DURATION" default:"15m"`
	UseSSL                     bool          `envconfig:"MINIO_USE_SSL" default:"false"`
}

type S3Config struct {
	Region            string        `envconfig:"S3_REGION" default:"us-east-1"`
	BucketName        string        `envconfig:"S3_BUCKET_NAME" default:"transfers"`
	Endpoint          string        `envconfig:"S3_ENDPOINT"`
	AccessKey         string        `envconfig:"S3_ACCESS_KEY"`
	SecretKey         string        `envconfig:"S3_SECRET_KEY"`
	ForcePathStyle    bool          `envconfig:"S3_FORCE_PATH_STYLE" default:"false"`
	PresignedDuration time.Duration `envconfig:"S3_PRESIGNED_DURATION" default:"15m"`
	MaxRetries        int           `envconfig:"S3_MAX_RETRIES" default:"3"`
}

type FileUploadConfig struct {
	SingleUploadMaxSize    int64         `envconfig:"UPLOAD_SINGLE_UPLOAD_FILE_SIZE" default:"104857600"`     // 100MB
	MultipartUploadMaxSize int64         `envconfig:"UPLOAD_MULTIPART_UPLOAD_FILE_SIZE" default:"5368709120"` // 5GB
	MinPartSize            int64         `envconfig:"UPLOAD_MIN_PART_SIZE" default:"5242880"`                 // 5MB
	PartSize               int64         `envconfig:"UPLOAD_PART_SIZE" default:"10485760"`                    // 10MB
	MaxParts               int           `envconfig:"UPLOAD_MAX_PARTS" default:"10000"`
	PresignedURLTTL        time.Duration `envconfig:"UPLOAD_PRESIGNED_URL_TTL" default:"15m"`
	IdempotencyCacheTTL    time.Duration `envconfig:"UPLOAD_IDEMPOTENCY_CACHE_TTL" default:"24h"`
}

type NATSConfig struct {
	URL           string        `envconfig:"NATS_URL" required:"true"`
	StreamName    string        `envconfig:"NATS_STREAM_NAME" required:"true"`
	ConsumerName  string        `envconfig:"NATS_CONSUMER_NAME" required:"true"`
	Subject       string        `envconfig:"NATS_SUBJECT" required:"true"`
	EventsStream  string        `envconfig:"NATS_EVENTS_STREAM" default:"TRANSFER_EVENTS"`
	EventsSubject string        `envconfig:"NATS_EVENTS_SUBJECT_PREFIX" default:"transferhub.events"`
	MaxDeliver    int           `envconfig:"NATS_MAX_DELIVER" default:"5"`
	AckWait       time.Duration `envconfig:"NATS_ACK_WAIT" default:"30s"`
	NakDelay      time.Duration `envconfig:"NATS_NAK_DELAY" default:"500ms"`
}

type DatabaseConfig struct {
	Host           string        `envconfig:"DB_HOST" required:"true"`
	Port           int           `envconfig:"DB_PORT" default:"5432"`
	User           string        `envconfig:"DB_USER" required:"true"`
	Password       string        `envconfig:"DB_PASSWORD" required:"true"`
	Name           string        `envconfig:"DB_NAME" required:"true"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenCons    int           `envconfig:"DB_MAX_OPEN_CONS" default:"25"`
	MaxIdleCons    int           `envconfig:"DB_MAX_IDLE_CONS" default:"5"`
	ConMaxLifeTime time.Duration `envconfig:"DB_CONMAX_LIFE_TIME" default:"5m"`
}

// RedisConfig is optional: an empty address disables the idempotency cache and the batch leases
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type OutboxConfig struct {
	PollEvery       time.Duration `envconfig:"OUTBOX_POLL_EVERY" default:"5s"`
	BatchSize       int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	AttemptTimeout  time.Duration `envconfig:"OUTBOX_ATTEMPT_TIMEOUT" default:"10s"`
	MaxAttempts     int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"5"`
	InitialInterval time.Duration `envconfig:"OUTBOX_INITIAL_INTERVAL" default:"1s"`
	Multiplier      float64       `envconfig:"OUTBOX_MULTIPLIER" default:"2"`
	MaxInterval     time.Duration `envconfig:"OUTBOX_MAX_INTERVAL" default:"5m"`
	LeaseTTL        time.Duration `envconfig:"OUTBOX_LEASE_TTL" default:"30s"`
}

type ReaperConfig struct {
	Every               time.Duration `envconfig:"REAPER_EVERY" default:"5m"`
	PendingThreshold    time.Duration `envconfig:"REAPER_PENDING_THRESHOLD" default:"30m"`
	InProgressThreshold time.Duration `envconfig:"REAPER_IN_PROGRESS_THRESHOLD" default:"24h"`
	StaleDownloadAfter  time.Duration `envconfig:"REAPER_STALE_DOWNLOAD_AFTER" default:"15m"`
	BatchSize           int           `envconfig:"REAPER_BATCH_SIZE" default:"500"`
	LeaseTTL            time.Duration `envconfig:"REAPER_LEASE_TTL" default:"1m"`
}

type DownloadConfig struct {
	PollEvery       time.Duration `envconfig:"DOWNLOAD_POLL_EVERY" default:"5s"`
	BatchSize       int           `envconfig:"DOWNLOAD_BATCH_SIZE" default:"20"`
	Workers         int           `envconfig:"DOWNLOAD_WORKERS" default:"4"`
	AttemptTimeout  time.Duration `envconfig:"DOWNLOAD_ATTEMPT_TIMEOUT" default:"5m"`
	MaxRetries      int           `envconfig:"DOWNLOAD_MAX_RETRIES" default:"3"`
	InitialInterval time.Duration `envconfig:"DOWNLOAD_INITIAL_INTERVAL" default:"2s"`
	Multiplier      float64       `envconfig:"DOWNLOAD_MULTIPLIER" default:"2"`
	MaxInterval     time.Duration `envconfig:"DOWNLOAD_MAX_INTERVAL" default:"10m"`
	MaxSize         int64         `envconfig:"DOWNLOAD_MAX_SIZE" default:"5368709120"` // 5GB
}

type WebhookConfig struct {
	Timeout   time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"WEBHOOK_USER_AGENT" default:"transferhub-webhook/1.0"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
