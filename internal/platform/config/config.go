package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Gate      GateConfig      `mapstructure:"gate"`
	Notes     NotesConfig     `mapstructure:"notes"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了元数据库和Redis相关的配置
type DatabaseConfig struct {
	// Driver 可选 "sqlite" 或 "postgres"
	Driver string       `mapstructure:"driver"`
	DSN    string       `mapstructure:"dsn"`
	Sqlite SqliteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SqliteConfig 定义了SQLite数据库文件的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// BlobConfig 定义了笔记内容所在的对象存储
type BlobConfig struct {
	// Driver 可选 "local"、"s3" 或 "memory"
	Driver string          `mapstructure:"driver"`
	Local  LocalBlobConfig `mapstructure:"local"`
	S3     S3BlobConfig    `mapstructure:"s3"`
}

type LocalBlobConfig struct {
	Root string `mapstructure:"root"`
}

type S3BlobConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	UsePathStyle    bool   `mapstructure:"usePathStyle"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

// AuthConfig 定义了身份令牌的签发参数
type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwtSecret"`
	TokenTTL     time.Duration `mapstructure:"tokenTTL"`
	SecureCookie bool          `mapstructure:"secureCookie"`
}

// GateConfig 定义了访问口令门的配置。Password为空时口令门关闭。
type GateConfig struct {
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NotesConfig 定义了笔记编排器的参数
type NotesConfig struct {
	MaxContentBytes  int  `mapstructure:"maxContentBytes"`
	CompensateCreate bool `mapstructure:"compensateCreate"`
	ListConcurrency  int  `mapstructure:"listConcurrency"`
}

// ReconcileConfig 定义了孤儿内容清理任务的参数
type ReconcileConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	GracePeriod time.Duration `mapstructure:"gracePeriod"`
	DryRun      bool          `mapstructure:"dryRun"`
}

// LogConfig 定义了日志输出
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "notes.db")
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.dsn", "")

	v.SetDefault("blob.driver", "local")
	v.SetDefault("blob.local.root", "./data/notes")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.prefix", "")
	v.SetDefault("blob.s3.usePathStyle", false)
	v.SetDefault("blob.s3.accessKeyId", "")
	v.SetDefault("blob.s3.secretAccessKey", "")

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 7*24*time.Hour)
	v.SetDefault("auth.secureCookie", false)

	v.SetDefault("gate.password", "")
	v.SetDefault("gate.ttl", 30*24*time.Hour)

	v.SetDefault("notes.maxContentBytes", 1<<20)
	v.SetDefault("notes.compensateCreate", true)
	v.SetDefault("notes.listConcurrency", 8)

	v.SetDefault("reconcile.enabled", false)
	v.SetDefault("reconcile.interval", time.Hour)
	v.SetDefault("reconcile.gracePeriod", 15*time.Minute)
	v.SetDefault("reconcile.dryRun", false)

	// AutomaticEnv 只覆盖已知的键，每个配置项都需要默认值
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "")
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件，找不到时只使用默认值和环境变量
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:9090
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret 未配置")
	}

	return &cfg, nil
}
