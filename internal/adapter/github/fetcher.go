package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/port"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

// FailureMessage 抓取失败时打印给用户的统一提示
const FailureMessage = "Failed to retrieve data from the GitHub API."

// Fetcher 实现了 port.Searcher 接口
type Fetcher struct {
	client     *github.Client
	maxRetries int
}

// Option 配置 Fetcher
type Option func(*Fetcher) error

// WithBaseURL 指定 API 地址 (GitHub Enterprise 或测试服务器)
func WithBaseURL(raw string) Option {
	return func(f *Fetcher) error {
		if raw == "" {
			return nil
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("解析 GitHub API 地址失败: %w", err)
		}
		f.client.BaseURL = u
		return nil
	}
}

// WithMaxRetries 设置失败后的重试次数，默认 0 (只请求一次)
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) error {
		if n >= 0 {
			f.maxRetries = n
		}
		return nil
	}
}

// NewFetcher 初始化 GitHub 客户端
// token: GitHub Personal Access Token (空字符串表示匿名访问，限制 60次/小时)
func NewFetcher(token string, opts ...Option) (*Fetcher, error) {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	}

	f := &Fetcher{client: client}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Search 执行一次搜索，只取第一页
func (f *Fetcher) Search(ctx context.Context, q port.SearchQuery) (*port.SearchResult, error) {
	opts := &github.SearchOptions{
		Sort:  q.Sort,
		Order: q.Order,
		ListOptions: github.ListOptions{
			PerPage: q.PerPage,
		},
	}

	var result *github.RepositoriesSearchResult
	err := common.Do(ctx, func() error {
		var apiErr error
		result, _, apiErr = f.client.Search.Repositories(ctx, q.Query, opts)
		return apiErr
	},
		common.WithMaxRetries(f.maxRetries),
		common.WithRetryIf(isTransient),
	)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGitHubAPI, "GitHub API 调用失败", err)
	}

	out := &port.SearchResult{
		Total: result.GetTotal(),
		Repos: make([]*domain.Repo, 0, len(result.Repositories)),
	}
	for _, item := range result.Repositories {
		out.Repos = append(out.Repos, toDomain(item))
	}
	return out, nil
}

// toDomain 将 GitHub 的数据结构转换为我们的 Domain 实体
func toDomain(item *github.Repository) *domain.Repo {
	return &domain.Repo{
		ID:          fmt.Sprintf("github-%d", item.GetID()), // 加上前缀防止冲突
		Name:        item.GetFullName(),
		URL:         item.GetHTMLURL(),
		Description: item.GetDescription(),
		Language:    item.GetLanguage(),
		License:     item.GetLicense().GetSPDXID(),
		Stars:       item.GetStargazersCount(),
		Forks:       item.GetForksCount(),
		CreatedAt:   item.GetCreatedAt().Time,
		UpdatedAt:   item.GetUpdatedAt().Time,
		// 分类留给 Categorizer 填
		Category: domain.CategoryUnknown,
	}
}

// isTransient 只有网络错误和 5xx 值得重试，4xx (鉴权、查询语法) 直接返回
func isTransient(err error) bool {
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// PrintResult 按抓取脚本的格式把结果打印到 w
func PrintResult(w io.Writer, result *port.SearchResult) {
	fmt.Fprintf(w, "Total repositories found: %d\n", result.Total)
	for _, repo := range result.Repos {
		fmt.Fprintf(w, "Repository: %s\n", repo.Name)
		fmt.Fprintf(w, "Stars: %d\n", repo.Stars)
		fmt.Fprintf(w, "URL: %s\n", repo.URL)
		fmt.Fprintln(w, "---")
	}
}
