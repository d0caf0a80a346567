package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/sketchroom/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Session     SessionConfig     `koanf:"session"`
	WebSocket   WebSocketConfig   `koanf:"websocket"`
	Logger      LoggerConfig      `koanf:"logger"`
	Mongo       MongoConfig       `koanf:"mongo"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	Redis       RedisConfig       `koanf:"redis"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Worker      WorkerConfig      `koanf:"worker"`
	RoomCatalog RoomCatalogConfig `koanf:"room_catalog"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
	// Inbound socket events allowed per connection per SocketWindow.
	SocketEvents int           `koanf:"socketEvents"`
	SocketWindow time.Duration `koanf:"socketWindow"`
}

type SessionConfig struct {
	ChatHistoryCapacity   int `koanf:"chat_history_capacity"`
	StrokeHistoryCapacity int `koanf:"stroke_history_capacity"`
	MaxMessageLength      int `koanf:"max_message_length"`
	Shards                int `koanf:"shards"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `koanf:"read_buffer_size"`
	WriteBufferSize int           `koanf:"write_buffer_size"`
	SendBufferSize  int           `koanf:"send_buffer_size"`
	MaxMessageSize  int64         `koanf:"max_message_size"`
	PongWait        time.Duration `koanf:"pong_wait"`
	WriteWait       time.Duration `koanf:"write_wait"`
}

type LoggerConfig struct {
	Level      string `koanf:"level"`
	Encoding   string `koanf:"encoding"`
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

type MongoConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectionTimeout time.Duration `koanf:"connection_timeout"`
}

type RabbitMQConfig struct {
	URI      string `koanf:"uri"`
	Exchange string `koanf:"exchange"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	Endpoint    string `koanf:"endpoint"`
}

type WorkerConfig struct {
	QueueSize  int `koanf:"queue_size"`
	MaxWorkers int `koanf:"max_workers"`
}

type RoomCatalogConfig struct {
	Capacity uint          `koanf:"capacity"`
	IdleTTL  time.Duration `koanf:"idle_ttl"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.request_timeout", 60*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")
	setDefault(k, "rateLimiter.socketEvents", 120)
	setDefault(k, "rateLimiter.socketWindow", time.Second)

	// Session defaults
	setDefault(k, "session.chat_history_capacity", 500)
	setDefault(k, "session.stroke_history_capacity", 10000)
	setDefault(k, "session.max_message_length", 500)
	setDefault(k, "session.shards", 32)

	// WebSocket defaults
	setDefault(k, "websocket.read_buffer_size", 1024)
	setDefault(k, "websocket.write_buffer_size", 1024)
	setDefault(k, "websocket.send_buffer_size", 256)
	setDefault(k, "websocket.max_message_size", 64*1024)
	setDefault(k, "websocket.pong_wait", 60*time.Second)
	setDefault(k, "websocket.write_wait", 10*time.Second)

	// Logger defaults
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.max_size_mb", 100)
	setDefault(k, "logger.max_backups", 5)
	setDefault(k, "logger.max_age_days", 14)

	// Collaborator defaults; empty URIs keep the in-memory adapters
	setDefault(k, "mongo.database", "sketchroom")
	setDefault(k, "mongo.connection_timeout", 20*time.Second)
	setDefault(k, "rabbitmq.exchange", "sketchroom")
	setDefault(k, "tracing.service_name", "sketchroom")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")

	setDefault(k, "worker.queue_size", 1024)
	setDefault(k, "worker.max_workers", 4)

	setDefault(k, "room_catalog.capacity", 1000)
	setDefault(k, "room_catalog.idle_ttl", 24*time.Hour)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if socketEvents := env.GetInt("RATE_LIMIT_SOCKET_EVENTS", 0); socketEvents > 0 {
		k.Set("rateLimiter.socketEvents", socketEvents)
	}

	// Session config from env
	if chatCap := env.GetInt("SESSION_CHAT_HISTORY_CAPACITY", 0); chatCap > 0 {
		k.Set("session.chat_history_capacity", chatCap)
	}
	if strokeCap := env.GetInt("SESSION_STROKE_HISTORY_CAPACITY", 0); strokeCap > 0 {
		k.Set("session.stroke_history_capacity", strokeCap)
	}
	if maxLen := env.GetInt("SESSION_MAX_MESSAGE_LENGTH", 0); maxLen > 0 {
		k.Set("session.max_message_length", maxLen)
	}

	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if database := env.GetString("MONGODB_DATABASE", ""); database != "" {
		k.Set("mongo.database", database)
	}
	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.uri", uri)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("redis.password", password)
	}

	if env.GetBool("TRACING_ENABLED", false) {
		k.Set("tracing.enabled", true)
	}
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}

	if maxWorkers := env.GetInt("WORKER_MAX_WORKERS", 0); maxWorkers > 0 {
		k.Set("worker.max_workers", maxWorkers)
	}
	if roomCapacity := env.GetInt("ROOM_CATALOG_CAPACITY", 0); roomCapacity > 0 {
		k.Set("room_catalog.capacity", uint(roomCapacity))
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
