package config

import (
	"log"
	"os"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	QueryTopic      string   `toml:"queryTopic"`
	DeadLetterTopic string   `toml:"deadLetterTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
	Prefetch        int      `toml:"prefetch"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type AIEmbeddingConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"apiKey"`
	BaseURL        string `toml:"baseURL"`
	Model          string `toml:"model"`
	Dimensions     int    `toml:"dimensions"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
}

type AIChatModelConfig struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"apiKey"`
	BaseURL        string  `toml:"baseURL"`
	Model          string  `toml:"model"`
	Temperature    float32 `toml:"temperature"`
	MaxTokens      int     `toml:"maxTokens"`
	TimeoutSeconds int     `toml:"timeoutSeconds"`
}

type AIConfig struct {
	Embedding AIEmbeddingConfig `toml:"embedding"`
	ChatModel AIChatModelConfig `toml:"chatModel"`
}

type GuardrailsConfig struct {
	MaxQueryLength int `toml:"maxQueryLength"`
	MinQueryLength int `toml:"minQueryLength"`
}

type QueryPipelineConfig struct {
	DefaultCollection   string  `toml:"defaultCollection"`
	MaxChunks           int     `toml:"maxChunks"`
	ConfidenceThreshold float64 `toml:"confidenceThreshold"`
	MinScore            float64 `toml:"minScore"`
	CacheTTLSeconds     int     `toml:"cacheTTLSeconds"`
}

type Config struct {
	MainConfig          `toml:"mainConfig"`
	MysqlConfig         `toml:"mysqlConfig"`
	LogConfig           `toml:"logConfig"`
	MilvusConfig        `toml:"milvusConfig"`
	KafkaConfig         `toml:"kafkaConfig"`
	RedisConfig         `toml:"redisConfig"`
	AIConfig            `toml:"aiConfig"`
	GuardrailsConfig    `toml:"guardrailsConfig"`
	QueryPipelineConfig `toml:"queryPipelineConfig"`
}

var config *Config

func LoadConfig() error {
	configPath := os.Getenv("REVIEWQA_CONFIG")
	if configPath == "" {
		configPath = "configs/config_local.toml"
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("failed to load config file %s: %v, falling back to defaults", configPath, err)
		return err
	}
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.applyDefaults()
	}
	return config
}

func (c *Config) applyDefaults() {
	if c.GuardrailsConfig.MaxQueryLength <= 0 {
		c.GuardrailsConfig.MaxQueryLength = 1000
	}
	if c.GuardrailsConfig.MinQueryLength <= 0 {
		c.GuardrailsConfig.MinQueryLength = 3
	}
	if c.QueryPipelineConfig.DefaultCollection == "" {
		c.QueryPipelineConfig.DefaultCollection = "product_reviews"
	}
	if c.QueryPipelineConfig.MaxChunks <= 0 {
		c.QueryPipelineConfig.MaxChunks = 10
	}
	if c.QueryPipelineConfig.ConfidenceThreshold <= 0 {
		c.QueryPipelineConfig.ConfidenceThreshold = 0.7
	}
	if c.QueryPipelineConfig.CacheTTLSeconds <= 0 {
		c.QueryPipelineConfig.CacheTTLSeconds = 3600
	}
	if c.KafkaConfig.QueryTopic == "" {
		c.KafkaConfig.QueryTopic = "qa.process_query"
	}
	if c.KafkaConfig.DeadLetterTopic == "" {
		c.KafkaConfig.DeadLetterTopic = c.KafkaConfig.QueryTopic + ".dlq"
	}
	if c.KafkaConfig.ConsumerGroupID == "" {
		c.KafkaConfig.ConsumerGroupID = "qa-query-workers"
	}
	if c.KafkaConfig.Prefetch <= 0 {
		c.KafkaConfig.Prefetch = 5
	}
	if c.MilvusConfig.VectorDim <= 0 {
		c.MilvusConfig.VectorDim = 1536
	}
	if c.AIConfig.Embedding.Model == "" {
		c.AIConfig.Embedding.Model = "text-embedding-3-small"
	}
	if c.AIConfig.ChatModel.Model == "" {
		c.AIConfig.ChatModel.Model = "gpt-4o-mini"
	}
	if c.AIConfig.ChatModel.Temperature <= 0 {
		c.AIConfig.ChatModel.Temperature = 0.7
	}
	if c.AIConfig.ChatModel.MaxTokens <= 0 {
		c.AIConfig.ChatModel.MaxTokens = 500
	}
}
