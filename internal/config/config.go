package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Search     SearchConfig     `mapstructure:"search"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig PostgreSQL 配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // 是否自动迁移表结构
}

// RedisConfig Redis 配置（JWT 黑名单与 asynq 任务队列）
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// JWTConfig JWT 令牌配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// OpenRouterConfig OpenRouter (OpenAI 兼容) API 配置
type OpenRouterConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`      // 默认 https://openrouter.ai/api/v1
	ChatModel    string `mapstructure:"chat_model"`    // 生成回复用
	IntentModel  string `mapstructure:"intent_model"`  // 意图分类用
	EmbedModel   string `mapstructure:"embed_model"`   // 向量化用
	EmbedDim     int    `mapstructure:"embed_dim"`     // 向量维度
	HTTPReferer  string `mapstructure:"http_referer"`  // OpenRouter 推荐的归属头
	XTitle       string `mapstructure:"x_title"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

// SearchConfig 混合检索配置
type SearchConfig struct {
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`

	// 向量召回候选数 = limit * CandidateMultiplier，下限 CandidateFloor。
	// 下游过滤和去重会淘汰一部分候选，因此召回量必须大于最终 limit。
	CandidateMultiplier int `mapstructure:"candidate_multiplier"`
	CandidateFloor      int `mapstructure:"candidate_floor"`

	// 批量同步向量时的单批上限
	SyncBatchSize int `mapstructure:"sync_batch_size"`
}

// VectorStoreConfig 向量存储配置
type VectorStoreConfig struct {
	Type   string       `mapstructure:"type"` // chroma, pgvector, none
	Chroma ChromaConfig `mapstructure:"chroma"`
}

// ChromaConfig ChromaDB HTTP API 配置
type ChromaConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Collection     string `mapstructure:"collection"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SeedConfig 启动时示例数据配置
type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 环境变量优先级高于配置文件
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_DATABASE_HOST

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// setDefaults 搜索与 OpenRouter 的兜底默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("jwt.issuer", "fashionchat")
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.chat_model", "microsoft/wizardlm-2-8x22b")
	v.SetDefault("openrouter.intent_model", "openrouter/auto")
	v.SetDefault("openrouter.embed_model", "openai/text-embedding-3-small")
	v.SetDefault("openrouter.embed_dim", 1536)
	v.SetDefault("search.candidate_multiplier", 3)
	v.SetDefault("search.candidate_floor", 24)
	v.SetDefault("search.sync_batch_size", 96)
	v.SetDefault("search.vector_store.chroma.collection", "fashion_products")
	v.SetDefault("search.vector_store.chroma.timeout_seconds", 10)
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr 获取 Redis 地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
