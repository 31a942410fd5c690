package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel 默认使用的 Gemini 模型
const DefaultModel = "gemini-2.5-flash-lite"

// Categorizer 实现了 port.Categorizer 接口
type Categorizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// 定义一个内部结构体来接收 AI 返回的 JSON
type aiResponse struct {
	Category string `json:"category"`
}

// NewCategorizer 创建 Gemini 分类器，modelName 为空时使用 DefaultModel
func NewCategorizer(ctx context.Context, apiKey, modelName string) (*Categorizer, error) {
	if apiKey == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "GEMINI_API_KEY 为空")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "AI 初始化失败", err)
	}

	model := client.GenerativeModel(modelName)
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)

	return &Categorizer{
		client: client,
		model:  model,
	}, nil
}

// Close 释放底层连接
func (c *Categorizer) Close() error {
	return c.client.Close()
}

// Categorize 让模型从封闭集合中挑一个标签
func (c *Categorizer) Categorize(ctx context.Context, repo *domain.Repo) (domain.Category, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(buildPrompt(repo)))
	if err != nil {
		return domain.CategoryUnknown, common.WrapError(common.ErrCodeAIProcessing, "AI 调用失败", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return domain.CategoryUnknown, common.NewError(common.ErrCodeAIProcessing, "AI 返回内容为空")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return domain.CategoryUnknown, common.NewError(common.ErrCodeAIProcessing, "AI 返回格式错误")
	}

	res, err := parseAIResponse(string(text))
	if err != nil {
		return domain.CategoryUnknown, common.WrapError(common.ErrCodeAIProcessing, "解析 AI 返回失败", err)
	}

	category, _ := domain.ParseCategory(strings.TrimSpace(res.Category))
	return category, nil
}

func buildPrompt(repo *domain.Repo) string {
	labels := make([]string, 0, len(domain.AllCategories()))
	for _, c := range domain.AllCategories() {
		labels = append(labels, fmt.Sprintf("%q", c))
	}

	return fmt.Sprintf(`
You classify open source projects related to large language models.

Project: %s
URL: %s
Description: %s
Language: %s

Pick exactly one category from this list: %s.
Use "Unknown" when none fits.

Reply with JSON only: {"category": "<one of the categories>"}
`, repo.Name, repo.URL, repo.Description, repo.Language, strings.Join(labels, ", "))
}

// parseAIResponse 从模型输出中抠出 JSON 对象。
// 即使 AI 返回 "```json { ... } ```"，也能取出中间的 { ... }
func parseAIResponse(raw string) (*aiResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("无法提取 JSON, AI 原文: %s", raw)
	}

	var res aiResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return nil, fmt.Errorf("JSON 解析失败: %w", err)
	}
	return &res, nil
}
