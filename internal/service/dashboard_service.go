package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"oss-impact-radar/internal/adapter/analyzer"
	"oss-impact-radar/internal/adapter/filter"
	"oss-impact-radar/internal/common"
	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/port"
	"oss-impact-radar/internal/ranking"
)

// 许可证饼图展示的数量
const topLicenseCount = 3

// 关键词搜索最多返回的条数，与数据库查询保持一致
const searchLimit = 10

// RankRequest 一次排名请求。滑块值为 nil 时沿用预设里的权重。
type RankRequest struct {
	Category   string   `json:"category"`
	Preset     string   `json:"preset"`
	Stars      *float64 `json:"stars,omitempty"`
	Forks      *float64 `json:"forks,omitempty"`
	Age        *float64 `json:"age,omitempty"`
	Top        int      `json:"top,omitempty"`
	MaxAgeDays int      `json:"max_age_days,omitempty"`
}

// RankResponse 排名表和图 4 的数据
type RankResponse struct {
	Category string                 `json:"category"`
	Preset   string                 `json:"preset"`
	Weights  domain.Weights         `json:"weights"`
	Rows     []domain.RankedRepo    `json:"rows"`
	Impact   []analyzer.ImpactPoint `json:"impact"`
}

// Overview 仪表盘上方的概要和三张静态图
type Overview struct {
	Summary   analyzer.Summary        `json:"summary"`
	AgeStars  analyzer.AgeStarsChart  `json:"age_stars"`
	Creations []analyzer.DailyCount   `json:"creations"`
	Licenses  []analyzer.LicenseCount `json:"licenses"`
}

// DashboardService 持有当前加载的数据集，所有读写都是并发安全的
type DashboardService struct {
	mu        sync.RWMutex
	repos     []*domain.Repo
	listeners []func(count int)

	filter    *filter.RepoFilter
	notifier  port.Notifier   // 可以为 nil
	repoStore port.Repository // 可以为 nil
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(notifier port.Notifier, repoStore port.Repository) *DashboardService {
	return &DashboardService{
		filter:    filter.NewRepoFilter(),
		notifier:  notifier,
		repoStore: repoStore,
	}
}

// Replace 整体替换数据集并通知订阅者
func (s *DashboardService) Replace(repos []*domain.Repo) {
	snapshot := make([]*domain.Repo, len(repos))
	copy(snapshot, repos)

	s.mu.Lock()
	s.repos = snapshot
	listeners := append([]func(int){}, s.listeners...)
	s.mu.Unlock()

	log.Printf("[Dashboard] 📦 数据集已更新，共 %d 个项目", len(snapshot))
	for _, fn := range listeners {
		fn(len(snapshot))
	}
}

// OnReplace 注册数据集更新回调
func (s *DashboardService) OnReplace(fn func(count int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadFromStore 从快照库加载数据集
func (s *DashboardService) LoadFromStore(ctx context.Context) error {
	if s.repoStore == nil {
		return common.NewError(common.ErrCodeInvalidInput, "未配置数据库")
	}
	repos, err := s.repoStore.All(ctx)
	if err != nil {
		return err
	}
	s.Replace(repos)
	return nil
}

// Repos 返回当前数据集的副本
func (s *DashboardService) Repos() []*domain.Repo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Repo, len(s.repos))
	copy(out, s.repos)
	return out
}

// ResolveWeights 取预设权重并套用滑块覆盖值，结果必须满足滑块约束
func ResolveWeights(req RankRequest) (string, domain.Weights, error) {
	name := req.Preset
	if name == "" {
		name = domain.DefaultWeightPreset
	}
	preset, ok := domain.LookupWeightPreset(name)
	if !ok {
		return "", domain.Weights{}, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("unknown weight preset %q", name))
	}

	w := preset.Weights
	if req.Stars != nil {
		w.Stars = *req.Stars
	}
	if req.Forks != nil {
		w.Forks = *req.Forks
	}
	if req.Age != nil {
		w.Age = *req.Age
	}
	if err := w.Validate(); err != nil {
		return "", domain.Weights{}, common.WrapError(common.ErrCodeInvalidInput, "权重不合法", err)
	}
	return name, w, nil
}

// Rank 按请求计算排名
func (s *DashboardService) Rank(req RankRequest) (*RankResponse, error) {
	category := req.Category
	if category == "" {
		category = domain.CategoryPresetAll
	}
	if req.Top < 0 || req.Top > ranking.DefaultTopN {
		return nil, common.NewError(common.ErrCodeInvalidInput,
			fmt.Sprintf("top 必须在 [0, %d] 之间，实际为 %d", ranking.DefaultTopN, req.Top))
	}

	preset, weights, err := ResolveWeights(req)
	if err != nil {
		return nil, err
	}

	repos := s.Repos()
	if req.MaxAgeDays > 0 {
		repos = s.filter.FilterByCreatedAt(repos, req.MaxAgeDays)
	}

	rows, err := ranking.RankPreset(repos, category, weights, req.Top)
	if err != nil {
		return nil, err
	}

	return &RankResponse{
		Category: category,
		Preset:   preset,
		Weights:  weights,
		Rows:     rows,
		Impact:   analyzer.ImpactPoints(rows),
	}, nil
}

// Overview 计算概要和三张静态图，这些图不受筛选条件影响
func (s *DashboardService) Overview() Overview {
	repos := s.Repos()
	return Overview{
		Summary:   analyzer.Summarize(repos),
		AgeStars:  analyzer.AgeStarsTrend(repos),
		Creations: analyzer.CreationsOverTime(repos),
		Licenses:  analyzer.TopLicenses(repos, topLicenseCount),
	}
}

// Search 按关键词搜索名字或描述。配置了数据库时走数据库，否则在内存中匹配。
func (s *DashboardService) Search(ctx context.Context, query string) ([]*domain.Repo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "搜索关键词为空")
	}
	if s.repoStore != nil {
		return s.repoStore.Search(ctx, query)
	}

	needle := strings.ToLower(query)
	out := make([]*domain.Repo, 0)
	for _, r := range s.Repos() {
		if strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Description), needle) {
			out = append(out, r)
		}
	}
	// 与数据库查询一致：star 降序
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stars > out[j].Stars })
	if len(out) > searchLimit {
		out = out[:searchLimit]
	}
	return out, nil
}

// Notify 把当前排名推送到飞书
func (s *DashboardService) Notify(ctx context.Context, req RankRequest) (*RankResponse, error) {
	if s.notifier == nil {
		return nil, common.NewError(common.ErrCodeNotification, "未配置通知通道")
	}

	resp, err := s.Rank(req)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("📊 %s · %s · Top %d", resp.Category, resp.Preset, len(resp.Rows))
	if err := s.notifier.NotifyRanking(ctx, title, resp.Rows); err != nil {
		return nil, err
	}
	return resp, nil
}
