package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BlobDriverS3    = "s3"
	BlobDriverMinio = "minio"
)

type (
	APP struct {
		Name string
		Host string
		Port string
		Env  string
	}
	DB struct {
		User      string
		Password  string
		Name      string
		Host      string
		Port      string
		ConnLimit int
	}
	Upload struct {
		TmpDir   string
		MaxBytes int64
	}
	Blob struct {
		Driver          string
		Endpoint        string
		Bucket          string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
	}
	Mongo struct {
		URL        string
		DB         string
		Collection string
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Timeouts struct {
		Stage time.Duration
	}

	Config struct {
		App      APP
		DB       DB
		Upload   Upload
		Blob     Blob
		Mongo    Mongo
		MQ       MQ
		Timeouts Timeouts
	}
)

var ErrMissingBlobCredentials = errors.New("blob store keys are not found")

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func Load() Config {
	app := APP{
		Name: getEnv("SERVICE_NAME", "webshare"),
		Host: getEnv("SERVICE_HOST", ""),
		Port: getEnv("SERVICE_PORT", getEnv("PORT", "3000")),
		Env:  getEnv("SERVICE_ENV", ""),
	}
	db := DB{
		User:      getEnv("DB_USER", ""),
		Password:  getEnv("DB_PW", ""),
		Name:      getEnv("DB_NAME", "paf2020"),
		Host:      getEnv("DB_HOST", "localhost"),
		Port:      getEnv("DB_PORT", "5432"),
		ConnLimit: getEnvInt("DB_CONN_LIMIT", 4),
	}
	upload := Upload{
		TmpDir:   getEnv("TMP_DIR", filepath.Join(os.TempDir(), "uploads")),
		MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
	}
	blob := Blob{
		Driver:          strings.ToLower(getEnv("BLOB_DRIVER", BlobDriverS3)),
		Endpoint:        getEnv("CLOUD_ENDPOINT", ""),
		Bucket:          getEnv("CLOUD_BUCKET", ""),
		Region:          getEnv("CLOUD_REGION", "us-east-1"),
		AccessKeyID:     getEnv("ACCESS_KEY", ""),
		SecretAccessKey: getEnv("SECRET_ACCESS_KEY", ""),
	}
	mongo := Mongo{
		URL:        getEnv("MONGO_URL", "mongodb://localhost:27017"),
		DB:         getEnv("MONGO_DB", "webshare"),
		Collection: getEnv("MONGO_COLLECTION", "sharing"),
	}
	mq := MQ{
		User:         getEnv("RABBITMQ_USER", ""),
		Password:     getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:        getEnv("RABBITMQ_VHOST", ""),
		Host:         getEnv("RABBITMQ_HOST", ""),
		AmqpPort:     getEnv("RABBITMQ_AMQP_PORT", "5672"),
		Exchange:     getEnv("RABBITMQ_EXCHANGE", "webshare"),
		ExchangeType: getEnv("RABBITMQ_EXCHANGE_TYPE", "direct"),
		QueueName:    getEnv("RABBITMQ_QUEUE_NAME", "webshare.shares"),
	}
	timeouts := Timeouts{
		Stage: getEnvDuration("STAGE_TIMEOUT", 10*time.Second),
	}

	return Config{
		App:      app,
		DB:       db,
		Upload:   upload,
		Blob:     blob,
		Mongo:    mongo,
		MQ:       mq,
		Timeouts: timeouts,
	}
}

// Validate reports configuration that makes startup impossible.
func (c Config) Validate() error {
	if c.Blob.AccessKeyID == "" || c.Blob.SecretAccessKey == "" {
		return ErrMissingBlobCredentials
	}
	if c.Blob.Endpoint == "" || c.Blob.Bucket == "" {
		return fmt.Errorf("invalid blob config: endpoint and bucket are required")
	}
	switch c.Blob.Driver {
	case BlobDriverS3, BlobDriverMinio:
	default:
		return fmt.Errorf("invalid blob config: unknown driver %q", c.Blob.Driver)
	}
	if c.Mongo.URL == "" || c.Mongo.DB == "" || c.Mongo.Collection == "" {
		return fmt.Errorf("invalid mongo config: url, db and collection are required")
	}
	return nil
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s?pool_max_conns=%d",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
		c.DB.ConnLimit,
	), nil
}

// MQEnabled - share events are optional, the service runs without a broker.
func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}

// EndpointHost strips the scheme and any trailing slash so the endpoint can be
// used both for client construction and for public URL derivation.
func (b Blob) EndpointHost() string {
	h := strings.TrimSpace(b.Endpoint)
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	return strings.TrimRight(h, "/")
}
