package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
)

// 卡片里最多列出的项目数，飞书卡片有大小上限
const maxCardRows = 10

type Notifier struct {
	webhookURL string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Option 配置 Notifier
type Option func(*Notifier)

// WithHTTPClient 替换默认的 HTTP 客户端
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// WithRetry 设置重试次数和首次退避时间
func WithRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(n *Notifier) {
		n.maxRetries = maxRetries
		n.retryDelay = initialDelay
	}
}

func NewNotifier(webhook string, opts ...Option) *Notifier {
	if webhook == "" {
		log.Println("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	n := &Notifier{
		webhookURL: webhook,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// statusError 飞书返回的非 200 状态
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("飞书 API 报错: 状态码 %d", e.code)
}

// 4xx 说明请求本身有问题，重试没有意义
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

// NotifyRanking 把当前排名发成飞书卡片消息 (Schema 2.0)
func (n *Notifier) NotifyRanking(ctx context.Context, title string, ranked []domain.RankedRepo) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}

	body, err := json.Marshal(buildCard(title, ranked))
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "构造卡片失败", err)
	}

	err = common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := n.client.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	},
		common.WithMaxRetries(n.maxRetries),
		common.WithInitialDelay(n.retryDelay),
		common.WithRetryIf(retryable),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	log.Printf("📨 已推送 %d 个项目到飞书", min(len(ranked), maxCardRows))
	return nil
}

func buildCard(title string, ranked []domain.RankedRepo) map[string]interface{} {
	if title == "" {
		title = "📊 LLM 开源项目影响力排行"
	}

	elements := []map[string]interface{}{
		{
			"tag":       "markdown",
			"content":   rankingMarkdown(ranked),
			"text_size": "normal",
		},
	}
	if len(ranked) > 0 {
		elements = append(elements, map[string]interface{}{
			"tag": "button",
			"text": map[string]interface{}{
				"tag":     "plain_text",
				"content": "🔗 查看榜首项目",
			},
			"type": "primary",
			"behaviors": []map[string]interface{}{
				{
					"type":        "open_url",
					"default_url": ranked[0].Repo.URL,
				},
			},
		})
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "blue",
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements":  elements,
			},
		},
	}
}

func rankingMarkdown(ranked []domain.RankedRepo) string {
	if len(ranked) == 0 {
		return "没有符合条件的项目"
	}

	var b strings.Builder
	for i, r := range ranked {
		if i == maxCardRows {
			fmt.Fprintf(&b, "\n……共 %d 个项目", len(ranked))
			break
		}
		fmt.Fprintf(&b, "**%d. [%s](%s)**  ⭐ %d | 🍴 %d | 📅 %d 天 | 🏆 %.1f\n",
			r.Rank, r.Repo.Name, r.Repo.URL, r.Repo.Stars, r.Repo.Forks, r.Repo.DaysSinceCreated, r.Score)
	}
	return b.String()
}
