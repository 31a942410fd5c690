// Package config 读取 YAML 配置文件，并用环境变量覆盖。
// 密钥(GitHub token、Gemini key、飞书 webhook、数据库 DSN)只从环境变量读取。
package config

import (
	"fmt"
	"os"
	"strings"

	"oss-impact-radar/internal/adapter/gemini"
	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/ranking"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultQuery       = "stars:>=500"
	DefaultSort        = "stars"
	DefaultOrder       = "desc"
	DefaultPerPage     = 100
	DefaultDatasetPath = "data/llm-oss-repos.csv"
	DefaultHTTPAddr    = ":8080"
	DefaultGeminiModel = gemini.DefaultModel
	DefaultConcurrency = 3
)

// 环境变量名
const (
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvFeishuWebhook = "FEISHU_WEBHOOK"
	EnvDatabaseDSN   = "DATABASE_DSN"
	EnvDatasetPath   = "DATASET_PATH"
	EnvHTTPAddr      = "HTTP_ADDR"
)

// Config 整个应用的配置
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Database  DatabaseConfig  `yaml:"database"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Feishu    FeishuConfig    `yaml:"feishu"`
}

// GitHubConfig 搜索参数
type GitHubConfig struct {
	Token      string `yaml:"-"`
	Query      string `yaml:"query"`
	Sort       string `yaml:"sort"`
	Order      string `yaml:"order"`
	PerPage    int    `yaml:"per_page"`
	BaseURL    string `yaml:"base_url"`    // 为空时使用 api.github.com
	MaxRetries int    `yaml:"max_retries"` // 0 表示只请求一次
}

// DashboardConfig 仪表盘参数
type DashboardConfig struct {
	DatasetPath string `yaml:"dataset_path"`
	HTTPAddr    string `yaml:"http_addr"`
	TopN        int    `yaml:"top_n"`
	Watch       bool   `yaml:"watch"` // 数据集文件变化时自动重新加载
}

type DatabaseConfig struct {
	DSN string `yaml:"-"`
}

type GeminiConfig struct {
	APIKey      string `yaml:"-"`
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
}

type FeishuConfig struct {
	Webhook string `yaml:"-"`
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Query:   DefaultQuery,
			Sort:    DefaultSort,
			Order:   DefaultOrder,
			PerPage: DefaultPerPage,
		},
		Dashboard: DashboardConfig{
			DatasetPath: DefaultDatasetPath,
			HTTPAddr:    DefaultHTTPAddr,
			TopN:        ranking.DefaultTopN,
			Watch:       true,
		},
		Gemini: GeminiConfig{
			Model:       DefaultGeminiModel,
			Concurrency: DefaultConcurrency,
		},
	}
}

// Load 读取配置：默认值 -> YAML 文件 -> 环境变量 -> 校验。
// path 为空时跳过文件，只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, common.WrapError(common.ErrCodeInvalidInput, fmt.Sprintf("读取配置文件 %q 失败", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, common.WrapError(common.ErrCodeInvalidInput, "解析 YAML 失败", err)
		}
	}

	applyEnv(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "配置不合法", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	cfg.GitHub.Token = getenv(EnvGitHubToken)
	cfg.Gemini.APIKey = getenv(EnvGeminiAPIKey)
	cfg.Feishu.Webhook = getenv(EnvFeishuWebhook)
	cfg.Database.DSN = getenv(EnvDatabaseDSN)

	if v := getenv(EnvDatasetPath); v != "" {
		cfg.Dashboard.DatasetPath = v
	}
	if v := getenv(EnvHTTPAddr); v != "" {
		cfg.Dashboard.HTTPAddr = v
	}
}

// Validate 检查配置的取值范围
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GitHub.Query) == "" {
		return fmt.Errorf("github.query must not be empty")
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		return fmt.Errorf("github.per_page %d is out of range [1, 100]", c.GitHub.PerPage)
	}
	switch c.GitHub.Order {
	case "asc", "desc":
	default:
		return fmt.Errorf("github.order %q unknown: want asc|desc", c.GitHub.Order)
	}
	if c.GitHub.MaxRetries < 0 {
		return fmt.Errorf("github.max_retries must not be negative")
	}
	if c.Dashboard.TopN < 1 || c.Dashboard.TopN > ranking.DefaultTopN {
		return fmt.Errorf("dashboard.top_n %d is out of range [1, %d]", c.Dashboard.TopN, ranking.DefaultTopN)
	}
	if c.Gemini.Concurrency < 1 {
		return fmt.Errorf("gemini.concurrency must be at least 1, got %d", c.Gemini.Concurrency)
	}
	return nil
}
