package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFeishuServer 创建模拟的飞书 Webhook 服务器
func mockFeishuServer(t *testing.T, statusCode int, hits *int32, validatePayload func(*testing.T, map[string]interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))

		if validatePayload != nil {
			validatePayload(t, payload)
		}

		w.WriteHeader(statusCode)
		w.Write([]byte(`{"code": 0, "msg": "success"}`))
	}))
}

func sampleRanking(n int) []domain.RankedRepo {
	ranked := make([]domain.RankedRepo, 0, n)
	for i := 0; i < n; i++ {
		ranked = append(ranked, domain.RankedRepo{
			Rank:  i + 1,
			Score: float64(1000 - i*10),
			Repo: &domain.Repo{
				Name:             fmt.Sprintf("org/repo-%d", i+1),
				URL:              fmt.Sprintf("https://github.com/org/repo-%d", i+1),
				Stars:            2000 - i*10,
				Forks:            300,
				DaysSinceCreated: 400,
			},
		})
	}
	return ranked
}

func fastNotifier(url string) *Notifier {
	return NewNotifier(url, WithRetry(2, time.Millisecond))
}

func TestNotifier_NotifyRanking(t *testing.T) {
	tests := []struct {
		name            string
		title           string
		ranked          []domain.RankedRepo
		validatePayload func(*testing.T, map[string]interface{})
	}{
		{
			name:   "成功发送排名",
			title:  "Top 3 · Balanced",
			ranked: sampleRanking(3),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				assert.Equal(t, "interactive", payload["msg_type"])

				card := payload["card"].(map[string]interface{})
				assert.Equal(t, "2.0", card["schema"])

				header := card["header"].(map[string]interface{})
				assert.Equal(t, "blue", header["template"])
				title := header["title"].(map[string]interface{})
				assert.Equal(t, "Top 3 · Balanced", title["content"])

				body := card["body"].(map[string]interface{})
				elements := body["elements"].([]interface{})
				require.Len(t, elements, 2) // markdown + button

				content := elements[0].(map[string]interface{})["content"].(string)
				assert.Contains(t, content, "1. [org/repo-1](https://github.com/org/repo-1)")
				assert.Contains(t, content, "⭐ 2000")
				assert.Contains(t, content, "🏆 1000.0")

				button := elements[1].(map[string]interface{})
				behavior := button["behaviors"].([]interface{})[0].(map[string]interface{})
				assert.Equal(t, "https://github.com/org/repo-1", behavior["default_url"])
			},
		},
		{
			name:   "超过上限只列前 10 个",
			ranked: sampleRanking(25),
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				card := payload["card"].(map[string]interface{})
				title := card["header"].(map[string]interface{})["title"].(map[string]interface{})
				assert.Contains(t, title["content"], "排行")

				elements := card["body"].(map[string]interface{})["elements"].([]interface{})
				content := elements[0].(map[string]interface{})["content"].(string)
				assert.Contains(t, content, "10. [org/repo-10]")
				assert.NotContains(t, content, "11. [org/repo-11]")
				assert.Contains(t, content, "共 25 个项目")
			},
		},
		{
			name:   "空排名没有按钮",
			ranked: nil,
			validatePayload: func(t *testing.T, payload map[string]interface{}) {
				card := payload["card"].(map[string]interface{})
				elements := card["body"].(map[string]interface{})["elements"].([]interface{})
				require.Len(t, elements, 1)
				content := elements[0].(map[string]interface{})["content"].(string)
				assert.Equal(t, "没有符合条件的项目", content)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockFeishuServer(t, http.StatusOK, nil, tt.validatePayload)
			defer server.Close()

			err := fastNotifier(server.URL).NotifyRanking(context.Background(), tt.title, tt.ranked)
			assert.NoError(t, err)
		})
	}
}

func TestNotifier_NotifyRanking_ErrorCases(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		expectedHits int32
	}{
		{name: "400 不重试", statusCode: http.StatusBadRequest, expectedHits: 1},
		{name: "403 不重试", statusCode: http.StatusForbidden, expectedHits: 1},
		{name: "500 重试后失败", statusCode: http.StatusInternalServerError, expectedHits: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := mockFeishuServer(t, tt.statusCode, &hits, nil)
			defer server.Close()

			err := fastNotifier(server.URL).NotifyRanking(context.Background(), "", sampleRanking(1))

			require.Error(t, err)
			assert.True(t, common.IsCode(err, common.ErrCodeNotification))
			assert.Contains(t, err.Error(), "飞书 API 报错")
			assert.Equal(t, tt.expectedHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestNotifier_NotifyRanking_EmptyWebhook(t *testing.T) {
	err := NewNotifier("").NotifyRanking(context.Background(), "", sampleRanking(1))

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeNotification))
	assert.Contains(t, err.Error(), "Webhook URL 为空")
}

func TestNotifier_NotifyRanking_RecoversAfterFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := fastNotifier(server.URL).NotifyRanking(context.Background(), "", sampleRanking(2))

	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNotifier_NotifyRanking_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer slowServer.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := fastNotifier(slowServer.URL).NotifyRanking(ctx, "", sampleRanking(1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "发送请求失败")
}
