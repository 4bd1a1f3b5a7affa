package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"CoachCheck/internal/cadence"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"coachcheck"`
	// 逗号分隔，留空表示放行任意来源
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"coachcheck"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"coachcheck"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`
	RabbitMQPrefetch int    `env:"RABBITMQ_PREFETCH" envDefault:"20"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪 / 指标
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 打卡窗口默认值（序列未单独配置窗口时使用）
	CheckInDefaultStartDay  string        `env:"CHECKIN_DEFAULT_START_DAY" envDefault:"friday"`
	CheckInDefaultStartTime string        `env:"CHECKIN_DEFAULT_START_TIME" envDefault:"10:00"`
	CheckInDefaultEndDay    string        `env:"CHECKIN_DEFAULT_END_DAY" envDefault:"monday"`
	CheckInDefaultEndTime   string        `env:"CHECKIN_DEFAULT_END_TIME" envDefault:"22:00"`
	CheckInWindowDisabled   bool          `env:"CHECKIN_WINDOW_DISABLED" envDefault:"false"`
	CheckInLateGrace        time.Duration `env:"CHECKIN_LATE_GRACE" envDefault:"24h"`
	CheckInTimezone         string        `env:"CHECKIN_TIMEZONE" envDefault:"UTC"`

	// 定时任务
	MissedSweepInterval time.Duration `env:"MISSED_SWEEP_INTERVAL" envDefault:"15m"`
	ReminderLookahead   time.Duration `env:"REMINDER_LOOKAHEAD" envDefault:"24h"`
	ReminderInterval    time.Duration `env:"REMINDER_INTERVAL" envDefault:"1h"`
}

// Init 加载 .env 与环境变量，校验失败直接退出
func Init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	if err := Cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
}

// Validate 校验必填项与打卡窗口默认值
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("CHECKIN_TIMEZONE: %w", err)
	}

	if _, err := cadence.NewEvaluator(c.CadenceConfig()); err != nil {
		return fmt.Errorf("check-in window defaults: %w", err)
	}

	if c.MissedSweepInterval <= 0 || c.ReminderInterval <= 0 {
		return errors.New("scheduler intervals must be positive")
	}

	return nil
}

// CadenceConfig 构造窗口计算器的配置
func (c *Config) CadenceConfig() cadence.Config {
	return cadence.Config{
		DefaultWindow: cadence.Window{
			Enabled:   !c.CheckInWindowDisabled,
			StartDay:  c.CheckInDefaultStartDay,
			StartTime: c.CheckInDefaultStartTime,
			EndDay:    c.CheckInDefaultEndDay,
			EndTime:   c.CheckInDefaultEndTime,
		},
		LateGrace: c.CheckInLateGrace,
	}
}

// Location 打卡日期计算使用的时区
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.CheckInTimezone)
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
