package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigin  string `env:"CORS_ORIGIN" envDefault:"*"`
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	DBType     string `env:"DBType" envDefault:"sqlite"`
	DSNURL     string `env:"DSN_URL" envDefault:""`
	DBUser     string `env:"DBUser" envDefault:""`
	DBPassword string `env:"DBPassword" envDefault:""`
	DBAddr     string `env:"DBAddr" envDefault:""`
	DBName     string `env:"DBName" envDefault:"leelaaverse"`
	DBPath     string `env:"DBPath" envDefault:"datas/leelaaverse.db"`
	DBPort     string `env:"DBPort" envDefault:"3306"`

	StorageType          string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"datas/media"`
	StoragePublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"/files"`

	// S3 兼容存储配置
	StorageS3Region          string `env:"STORAGE_S3_REGION"`
	StorageS3Bucket          string `env:"STORAGE_S3_BUCKET"`
	StorageS3Prefix          string `env:"STORAGE_S3_PREFIX"`
	StorageS3Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	StorageS3AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	StorageS3SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	StorageS3SessionToken    string `env:"STORAGE_S3_SESSION_TOKEN"`
	StorageS3ForcePathStyle  bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`

	// 阿里云 OSS 存储配置
	StorageOSSEndpoint        string `env:"STORAGE_OSS_ENDPOINT"`
	StorageOSSBucket          string `env:"STORAGE_OSS_BUCKET"`
	StorageOSSPrefix          string `env:"STORAGE_OSS_PREFIX"`
	StorageOSSAccessKeyID     string `env:"STORAGE_OSS_ACCESS_KEY_ID"`
	StorageOSSAccessKeySecret string `env:"STORAGE_OSS_ACCESS_KEY_SECRET"`

	// 腾讯云 COS 存储配置
	StorageCOSBucketURL string `env:"STORAGE_COS_BUCKET_URL"`
	StorageCOSPrefix    string `env:"STORAGE_COS_PREFIX"`
	StorageCOSSecretID  string `env:"STORAGE_COS_SECRET_ID"`
	StorageCOSSecretKey string `env:"STORAGE_COS_SECRET_KEY"`

	// Cloudflare R2 存储配置
	StorageR2AccountID       string `env:"STORAGE_R2_ACCOUNT_ID"`
	StorageR2Endpoint        string `env:"STORAGE_R2_ENDPOINT"`
	StorageR2Region          string `env:"STORAGE_R2_REGION" envDefault:"auto"`
	StorageR2Bucket          string `env:"STORAGE_R2_BUCKET"`
	StorageR2Prefix          string `env:"STORAGE_R2_PREFIX"`
	StorageR2AccessKeyID     string `env:"STORAGE_R2_ACCESS_KEY_ID"`
	StorageR2SecretAccessKey string `env:"STORAGE_R2_SECRET_ACCESS_KEY"`

	// 缩略图: transform 仅拼接 CDN 处理参数, encode 在本地生成缩略图文件
	ThumbnailMode        string `env:"THUMBNAIL_MODE" envDefault:"transform"`
	ThumbnailWidth       int    `env:"THUMBNAIL_WIDTH" envDefault:"400"`
	ThumbnailURLTemplate string `env:"THUMBNAIL_URL_TEMPLATE" envDefault:"{url}?w={width}"`
	MediaMaxBytes        int64  `env:"MEDIA_MAX_BYTES" envDefault:"20971520"`

	FalAPIKey        string `env:"FAL_KEY" envDefault:""`
	FalQueueBaseURL  string `env:"FAL_QUEUE_BASE_URL" envDefault:"https://queue.fal.run"`
	FalWebhookURL    string `env:"FAL_WEBHOOK_URL" envDefault:""`
	FalWebhookSecret string `env:"FAL_WEBHOOK_SECRET" envDefault:""`
	VolcengineAPIKey string `env:"VOLCENGINE_API_KEY" envDefault:""`

	ProviderTimeout        time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio    float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.6"`
	BreakerMinRequests     uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerOpenTimeout     time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	GenerationStaleAfter   time.Duration `env:"GENERATION_STALE_AFTER" envDefault:"30m"`
	GenerationSweepEvery   time.Duration `env:"GENERATION_SWEEP_INTERVAL" envDefault:"5m"`
	GenerationEstimatedSec int           `env:"GENERATION_ESTIMATED_SECONDS" envDefault:"30"`

	RedisURL     string        `env:"REDIS_URL" envDefault:""`
	FeedCacheTTL time.Duration `env:"FEED_CACHE_TTL" envDefault:"30s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"leelaaverse.events"`

	JWTSecret            string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer            string `env:"JWT_ISSUER" envDefault:"leelaaverse-api"`
	JWTExpirationMinutes int    `env:"JWT_EXPIRATION_MINUTES" envDefault:"1440"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:""`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:""`
}

func ParseConfig() (Config, error) {
	var Conf Config
	err := env.Parse(&Conf)
	if err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	logrus.WithFields(logrus.Fields{
		"db_type":      Conf.DBType,
		"storage_type": Conf.StorageType,
		"thumbnail":    Conf.ThumbnailMode,
		"redis":        Conf.RedisURL != "",
		"kafka":        len(Conf.KafkaBrokers) > 0,
	}).Debug("config loaded")
	return Conf, nil
}
