package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oss-impact-radar/internal/adapter/dataset"
	"oss-impact-radar/internal/adapter/github"
	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/config"
	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 让测试不受运行环境里已有变量的影响
func clearEnv(t *testing.T) {
	for _, k := range []string{
		config.EnvGitHubToken, config.EnvGeminiAPIKey, config.EnvFeishuWebhook,
		config.EnvDatabaseDSN, config.EnvDatasetPath, config.EnvHTTPAddr,
	} {
		t.Setenv(k, "")
	}
}

// runCmd 执行一条命令并返回标准输出
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeDataset(t *testing.T) string {
	t.Helper()
	created := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "repos.csv")
	require.NoError(t, dataset.Write(path, []*domain.Repo{
		{Name: "org/agent-kit", Stars: 1000, Forks: 10, DaysSinceCreated: 100, CreatedAt: created, License: "MIT", Category: domain.CategoryAIEngineering},
		{Name: "org/llm-course", Stars: 500, Forks: 800, DaysSinceCreated: 200, CreatedAt: created, License: "MIT", Category: domain.CategoryTutorials},
		{Name: "org/old-model", Stars: 50, Forks: 5, DaysSinceCreated: 3000, CreatedAt: created, Category: domain.CategoryUnknown},
	}))
	return path
}

// githubServer 模拟 GitHub 搜索接口
func githubServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"message": "Bad credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total_count": 4242,
			"items": []map[string]interface{}{
				{
					"id":               1,
					"full_name":        "org/agent-kit",
					"html_url":         "https://github.com/org/agent-kit",
					"description":      "Agent toolkit",
					"stargazers_count": 1000,
					"forks_count":      10,
					"created_at":       "2023-03-01T00:00:00Z",
					"license":          map[string]string{"spdx_id": "MIT"},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestPrintRanking(t *testing.T) {
	t.Run("打印表格", func(t *testing.T) {
		var buf bytes.Buffer
		resp := &service.RankResponse{
			Category: "All",
			Preset:   domain.PresetBalanced,
			Weights:  domain.Weights{Stars: 0.5, Forks: 0.5, Age: 0.5},
			Rows: []domain.RankedRepo{
				{Rank: 1, Score: 1527.5, Repo: &domain.Repo{Name: "org/old-model", Stars: 50, Forks: 5, DaysSinceCreated: 3000, Category: domain.CategoryUnknown}},
			},
		}

		require.NoError(t, printRanking(&buf, resp))
		out := buf.String()
		assert.Contains(t, out, "All · Balanced (stars=0.5 forks=0.5 age=0.5)")
		assert.Contains(t, out, "org/old-model")
		assert.Contains(t, out, "1527.5")
	})

	t.Run("没有结果", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printRanking(&buf, &service.RankResponse{Category: "Lists", Preset: domain.PresetBalanced}))
		assert.Contains(t, buf.String(), "没有符合条件的项目")
	})
}

func TestRankCmd(t *testing.T) {
	clearEnv(t)
	path := writeDataset(t)

	tests := []struct {
		name     string
		args     []string
		expected []string // 按排名顺序出现的项目
		absent   []string
	}{
		{
			name:     "默认预设",
			args:     []string{"rank", "--dataset", path},
			expected: []string{"org/old-model", "org/llm-course", "org/agent-kit"},
		},
		{
			name:     "只看 star",
			args:     []string{"rank", "--dataset", path, "--stars", "1", "--forks", "0", "--age", "0"},
			expected: []string{"org/agent-kit", "org/llm-course", "org/old-model"},
		},
		{
			name:     "单一分类",
			args:     []string{"rank", "--dataset", path, "--category", "Tutorials"},
			expected: []string{"org/llm-course"},
			absent:   []string{"org/agent-kit", "org/old-model"},
		},
		{
			name:     "限制行数",
			args:     []string{"rank", "--dataset", path, "--preset", "Contribution Focused", "--top", "1"},
			expected: []string{"org/old-model"},
			absent:   []string{"org/agent-kit", "org/llm-course"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCmd(t, tt.args...)
			require.NoError(t, err)

			last := -1
			for _, name := range tt.expected {
				idx := strings.Index(out, name)
				require.GreaterOrEqual(t, idx, 0, "missing %s in:\n%s", name, out)
				assert.Greater(t, idx, last, "%s out of order", name)
				last = idx
			}
			for _, name := range tt.absent {
				assert.NotContains(t, out, name)
			}
		})
	}
}

func TestRankCmd_Errors(t *testing.T) {
	clearEnv(t)
	path := writeDataset(t)

	_, err := runCmd(t, "rank", "--dataset", path, "--age", "0.35")
	assert.True(t, common.IsCode(err, common.ErrCodeInvalidInput))

	_, err = runCmd(t, "rank", "--dataset", path, "--category", "Games")
	assert.True(t, common.IsCode(err, common.ErrCodeInvalidInput))

	_, err = runCmd(t, "rank", "--dataset", filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, common.IsCode(err, common.ErrCodeDataset))
}

func TestFetchCmd(t *testing.T) {
	clearEnv(t)

	t.Run("打印结果", func(t *testing.T) {
		srv := githubServer(t, http.StatusOK)
		cfg := writeConfigFile(t, "github:\n  base_url: "+srv.URL+"\n")

		out, err := runCmd(t, "--config", cfg, "fetch", "-q", "topic:llm", "--per-page", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "Total repositories found: 4242")
		assert.Contains(t, out, "Repository: org/agent-kit\nStars: 1000\nURL: https://github.com/org/agent-kit\n---")
	})

	t.Run("失败时只打印一条提示", func(t *testing.T) {
		srv := githubServer(t, http.StatusUnauthorized)
		cfg := writeConfigFile(t, "github:\n  base_url: "+srv.URL+"\n")

		out, err := runCmd(t, "--config", cfg, "fetch")
		assert.ErrorIs(t, err, errFetchFailed)
		assert.Equal(t, github.FailureMessage+"\n", out)
	})

	t.Run("非法参数", func(t *testing.T) {
		_, err := runCmd(t, "fetch", "--per-page", "500")
		assert.Error(t, err)
	})
}

func TestExportCmd(t *testing.T) {
	clearEnv(t)
	srv := githubServer(t, http.StatusOK)
	cfg := writeConfigFile(t, "github:\n  base_url: "+srv.URL+"\n")
	out := filepath.Join(t.TempDir(), "nested", "repos.csv")

	stdout, err := runCmd(t, "--config", cfg, "export", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "共 1 个项目")

	repos, err := dataset.Load(out)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "org/agent-kit", repos[0].Name)
	assert.Equal(t, "MIT", repos[0].License)
	// 没有 Gemini key 时全部标为 Unknown
	assert.Equal(t, domain.CategoryUnknown, repos[0].Category)
	assert.Greater(t, repos[0].DaysSinceCreated, 0)
}

func TestExportCmd_DBRequiresDSN(t *testing.T) {
	clearEnv(t)
	srv := githubServer(t, http.StatusOK)
	cfg := writeConfigFile(t, "github:\n  base_url: "+srv.URL+"\n")

	_, err := runCmd(t, "--config", cfg, "export", "--out", filepath.Join(t.TempDir(), "r.csv"), "--db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvDatabaseDSN)
}

func TestNotifyCmd_RequiresWebhook(t *testing.T) {
	clearEnv(t)

	_, err := runCmd(t, "notify", "--dataset", writeDataset(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvFeishuWebhook)
}

func TestNotifyCmd(t *testing.T) {
	clearEnv(t)

	msgTypes := make(chan interface{}, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		msgTypes <- payload["msg_type"]
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()
	t.Setenv(config.EnvFeishuWebhook, hook.URL)

	out, err := runCmd(t, "notify", "--dataset", writeDataset(t), "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "All / Balanced 的前 2 个项目")
	assert.Equal(t, "interactive", <-msgTypes)
}
